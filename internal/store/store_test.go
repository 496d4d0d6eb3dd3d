package store

import (
	"testing"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

func TestCopyRow_MatchesColumns(t *testing.T) {
	version := toPgUUID(uuid.New())
	r := surveillance.Record{
		Country: "Kenya", Year: 2019, Population: 50000000,
		TBIncidence: 1, TBMortality: 2, TBHIVIncidence: 3, TBHIVMortality: 4,
	}

	row := copyRow(version, r)
	if len(row) != len(copyColumns) {
		t.Fatalf("len(copyRow) = %d, want %d (one per column)", len(row), len(copyColumns))
	}
	if row[1] != "Kenya" {
		t.Errorf("country = %v, want Kenya", row[1])
	}
	if row[2] != int32(2019) {
		t.Errorf("year = %v (%T), want int32 2019", row[2], row[2])
	}
	if row[7] != 4.0 {
		t.Errorf("tbhiv_mortality_count = %v, want 4", row[7])
	}
}

func TestToPgUUID(t *testing.T) {
	id := uuid.MustParse("0b6e8e8c-3f7e-4f57-9f0e-2b1a3c4d5e6f")

	got := toPgUUID(id)
	if !got.Valid {
		t.Fatal("toPgUUID(valid) returned invalid")
	}
	if uuid.UUID(got.Bytes) != id {
		t.Errorf("round trip = %s, want %s", uuid.UUID(got.Bytes), id)
	}

	if toPgUUID(uuid.Nil).Valid {
		t.Error("toPgUUID(Nil) should be invalid")
	}
}

func TestNew_MinimumRetention(t *testing.T) {
	if s := New(nil, 0); s.keep != 1 {
		t.Errorf("keep = %d, want 1", s.keep)
	}
	if s := New(nil, 5); s.keep != 5 {
		t.Errorf("keep = %d, want 5", s.keep)
	}
}
