package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// FindPageByTitle returns the ID of the first page in the database whose
// title property equals value, or "" when no page matches. property names
// the database's title column.
func FindPageByTitle(ctx context.Context, c Client, dbID, property, value string) (string, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{
				Equals: value,
			},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", eris.Wrap(err, "notion: find page by title")
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}
