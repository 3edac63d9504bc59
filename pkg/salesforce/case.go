package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Case represents a Salesforce Case record.
type Case struct {
	ID          string `json:"Id" salesforce:"Id"`
	CaseNumber  string `json:"CaseNumber" salesforce:"CaseNumber"`
	Subject     string `json:"Subject" salesforce:"Subject"`
	Description string `json:"Description" salesforce:"Description"`
	Status      string `json:"Status" salesforce:"Status"`
	Priority    string `json:"Priority" salesforce:"Priority"`
	Origin      string `json:"Origin" salesforce:"Origin"`
}

// caseFields are the SOQL fields selected for Case queries.
var caseFields = []string{
	"Id", "CaseNumber", "Subject", "Description", "Status", "Priority", "Origin",
}

// FindCaseByID queries Salesforce for a Case by its record ID. Inserts
// return the opaque record ID; the CaseNumber on the fetched record is
// the key agents see in the console. Returns nil if no case is found.
func FindCaseByID(ctx context.Context, c Client, id string) (*Case, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Case WHERE Id = '%s' LIMIT 1",
		strings.Join(caseFields, ", "),
		escapeSoql(id),
	)

	var cases []Case
	if err := c.Query(ctx, soql, &cases); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find case by id %s", id))
	}
	if len(cases) == 0 {
		return nil, nil
	}
	return &cases[0], nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
