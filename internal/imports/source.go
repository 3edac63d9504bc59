package imports

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/portops/triage-cli/internal/fetcher"
)

// document is one fetched file ready for parsing.
type document struct {
	name string
	data []byte
}

// sourceName returns the display name of a source: the path base for
// URLs and local paths alike.
func sourceName(source string) string {
	if scheme := fetcher.Scheme(source); scheme != "" && scheme != "file" {
		if u, err := url.Parse(source); err == nil && u.Path != "" {
			return path.Base(u.Path)
		}
		return "document"
	}
	return filepath.Base(strings.TrimPrefix(source, "file://"))
}

// localPath makes source available as a file on disk. Remote sources are
// fetched into dir; local sources are returned as-is.
func (im *Importer) localPath(ctx context.Context, source, dir string) (string, error) {
	switch fetcher.Scheme(source) {
	case "", "file":
		return strings.TrimPrefix(source, "file://"), nil
	}

	data, err := im.resolver.Fetch(ctx, source)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(dir, sourceName(source))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "imports: stage %s", sourceName(source))
	}
	return dest, nil
}

// readTable reads a tabular training file, dispatching on extension.
func readTable(filePath string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		return fetcher.ReadXLSX(filePath, fetcher.XLSXOptions{})
	case ".csv":
		f, err := os.Open(filePath)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "imports: open %s", filepath.Base(filePath))
		}
		defer f.Close() //nolint:errcheck
		return fetcher.ReadCSV(f, fetcher.CSVOptions{})
	default:
		return nil, nil, eris.Errorf("imports: unsupported training file %q (want .xlsx or .csv)", filepath.Base(filePath))
	}
}

// collectDocuments fetches a knowledge source and returns its documents.
// ZIP archives are staged to disk, unpacked, and each member returned;
// everything else is a single document.
func (im *Importer) collectDocuments(ctx context.Context, source, tmp string) ([]document, error) {
	if strings.EqualFold(filepath.Ext(sourceName(source)), ".zip") {
		zipPath, err := im.localPath(ctx, source, tmp)
		if err != nil {
			return nil, err
		}

		members, err := fetcher.ExtractZIP(zipPath, filepath.Join(tmp, "unpacked"))
		if err != nil {
			return nil, eris.Wrapf(err, "imports: unpack %s", sourceName(source))
		}

		docs := make([]document, 0, len(members))
		for _, member := range members {
			data, err := os.ReadFile(member)
			if err != nil {
				return nil, eris.Wrapf(err, "imports: read archive member %s", filepath.Base(member))
			}
			docs = append(docs, document{name: filepath.Base(member), data: data})
		}
		return docs, nil
	}

	data, err := im.resolver.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return []document{{name: sourceName(source), data: data}}, nil
}
