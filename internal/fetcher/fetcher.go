// Package fetcher retrieves corpus documents from local paths, HTTP(S)
// endpoints, and FTP drops, and parses the tabular and archive formats
// they arrive in.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Downloader retrieves a remote source as a stream.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Resolver opens sources by scheme: bare paths and file:// read the
// local filesystem, http(s):// goes through the rate-limited HTTP
// fetcher, ftp:// through the FTP fetcher.
type Resolver struct {
	http Downloader
	ftp  Downloader
}

// NewResolver creates a Resolver with default HTTP and FTP fetchers.
func NewResolver() *Resolver {
	return &Resolver{
		http: NewHTTPFetcher(HTTPOptions{}),
		ftp:  NewFTPFetcher(FTPOptions{}),
	}
}

// Open returns a reader for the source. The caller closes it.
func (r *Resolver) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch Scheme(source) {
	case "http", "https":
		return r.http.Download(ctx, source)
	case "ftp":
		return r.ftp.Download(ctx, source)
	case "", "file":
		f, err := os.Open(strings.TrimPrefix(source, "file://"))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", source)
		}
		return f, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme in %q", source)
	}
}

// Fetch reads the source fully into memory.
func (r *Resolver) Fetch(ctx context.Context, source string) ([]byte, error) {
	rc, err := r.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", source)
	}
	return data, nil
}

// Scheme returns the lowercased URL scheme of source, or "" for bare
// filesystem paths.
func Scheme(source string) string {
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
