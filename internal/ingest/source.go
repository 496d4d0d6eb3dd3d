package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// Source opens a raw surveillance extract.
type Source interface {
	// Open returns the extract stream. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in logs and snapshot metadata.
	Name() string
}

// FileSource reads an extract from the local filesystem.
type FileSource struct {
	Path string
}

// Open implements Source.
func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	return f, nil
}

// Name implements Source.
func (s FileSource) Name() string { return "file:" + s.Path }

// HTTPSource downloads an extract with a single GET.
type HTTPSource struct {
	URL     string
	Client  *http.Client
	MaxSize int64 // Response bodies larger than this fail; 0 means unlimited
}

// DefaultHTTPTimeout bounds a download when no client is supplied.
const DefaultHTTPTimeout = 2 * time.Minute

// Open implements Source.
func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", s.URL, resp.Status)
	}

	if s.MaxSize > 0 {
		return &limitedBody{ReadCloser: resp.Body, remaining: s.MaxSize}, nil
	}
	return resp.Body, nil
}

// Name implements Source.
func (s HTTPSource) Name() string { return "http:" + s.URL }

// limitedBody fails a read once more than the allowed bytes arrive.
type limitedBody struct {
	io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, fmt.Errorf("file too large")
	}
	return n, err
}

// SourceError reports a failure to fetch or decode a source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string { return fmt.Sprintf("source %s: %v", e.Source, e.Err) }

func (e *SourceError) Unwrap() error { return e.Err }

// Load opens src and decodes it into raw rows. Failures are *SourceError,
// except context cancellation which is returned as is.
func Load(ctx context.Context, src Source) ([]surveillance.RawRow, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SourceError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	rows, err := DecodeCSV(rc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SourceError{Source: src.Name(), Err: fmt.Errorf("decode: %w", err)}
	}
	return rows, nil
}
