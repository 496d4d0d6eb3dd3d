package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

const whoExtract = "country,iso3,year,e_pop_num,e_inc_num,e_mort_exc_tbhiv_num,e_inc_tbhiv_num,e_mort_tbhiv_num\n" +
	"Kenya,KEN,2019,50000000,50000,10,20,5\n" +
	"Uganda,UGA,2019,40000000,20000,8,16,4\n"

func TestDecodeCSV(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRows  int
		wantFirst surveillance.RawRow
	}{
		{
			name:     "plain extract",
			input:    whoExtract,
			wantRows: 2,
			wantFirst: surveillance.RawRow{
				"country": "Kenya", "iso3": "KEN", "year": "2019", "e_pop_num": "50000000",
				"e_inc_num": "50000", "e_mort_exc_tbhiv_num": "10", "e_inc_tbhiv_num": "20", "e_mort_tbhiv_num": "5",
			},
		},
		{
			name:     "byte order mark and uppercase headers",
			input:    "\xEF\xBB\xBFCountry,YEAR\nKenya,2019\n",
			wantRows: 1,
			wantFirst: surveillance.RawRow{
				"country": "Kenya", "year": "2019",
			},
		},
		{
			name:     "short row keeps leading columns",
			input:    "country,year,e_pop_num\nKenya,2019\n",
			wantRows: 1,
			wantFirst: surveillance.RawRow{
				"country": "Kenya", "year": "2019",
			},
		},
		{
			name:      "header only",
			input:     "country,year\n",
			wantRows:  0,
			wantFirst: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := DecodeCSV(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("DecodeCSV() error = %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("len(rows) = %d, want %d", len(rows), tt.wantRows)
			}
			if tt.wantFirst == nil {
				return
			}
			if len(rows[0]) != len(tt.wantFirst) {
				t.Errorf("first row = %v, want %v", rows[0], tt.wantFirst)
			}
			for k, v := range tt.wantFirst {
				if rows[0][k] != v {
					t.Errorf("first row[%q] = %q, want %q", k, rows[0][k], v)
				}
			}
		})
	}
}

func TestDecodeCSV_InvalidUTF8IsReplaced(t *testing.T) {
	rows, err := DecodeCSV(strings.NewReader("country,year\nC\xF4te,2019\n"))
	if err != nil {
		t.Fatalf("DecodeCSV() error = %v", err)
	}
	if got := rows[0]["country"]; got != "C�te" {
		t.Errorf("country = %q, want replacement character", got)
	}
}

func TestDecodeCSV_Errors(t *testing.T) {
	if _, err := DecodeCSV(strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty input error = %v, want ErrEmptyFile", err)
	}
	if _, err := DecodeCSV(strings.NewReader("country,year\n\"Kenya,2019\n")); err == nil {
		t.Error("unterminated quote: expected error")
	}
}

func TestDecodedRowsClean(t *testing.T) {
	rows, err := DecodeCSV(strings.NewReader(whoExtract))
	if err != nil {
		t.Fatalf("DecodeCSV() error = %v", err)
	}

	table, report, err := surveillance.Clean(rows, surveillance.DefaultCleanOptions())
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if table.Len() != 2 || report.DroppedCount() != 0 {
		t.Errorf("table.Len() = %d, dropped = %d; want 2, 0", table.Len(), report.DroppedCount())
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tb.csv")
	if err := os.WriteFile(path, []byte(whoExtract), 0o600); err != nil {
		t.Fatal(err)
	}

	rows, err := Load(context.Background(), FileSource{Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}

	_, err = Load(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")})
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("missing file error = %v, want *SourceError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want to wrap os.ErrNotExist", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, FileSource{Path: path}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled load error = %v, want context.Canceled", err)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tb.csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte(whoExtract))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rows, err := Load(context.Background(), HTTPSource{URL: srv.URL + "/tb.csv", Client: srv.Client()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}

	_, err = Load(context.Background(), HTTPSource{URL: srv.URL + "/missing", Client: srv.Client()})
	var srcErr *SourceError
	if !errors.As(err, &srcErr) || !strings.Contains(err.Error(), "unexpected status") {
		t.Errorf("404 error = %v, want *SourceError with unexpected status", err)
	}

	_, err = Load(context.Background(), HTTPSource{URL: srv.URL + "/tb.csv", Client: srv.Client(), MaxSize: 16})
	if err == nil || !strings.Contains(err.Error(), "file too large") {
		t.Errorf("oversized body error = %v, want file too large", err)
	}
}
