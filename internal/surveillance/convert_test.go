package surveillance

import (
	"math"
	"testing"
)

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   float64
	}{
		// Valid
		{name: "integer", input: "123", wantOK: true, want: 123},
		{name: "zero", input: "0", wantOK: true, want: 0},
		{name: "decimal", input: "52573967.5", wantOK: true, want: 52573967.5},
		{name: "leading decimal point", input: ".5", wantOK: true, want: 0.5},
		{name: "trailing decimal point", input: "99.", wantOK: true, want: 99},
		{name: "thousands separators", input: "1,234,567", wantOK: true, want: 1234567},
		{name: "surrounding whitespace", input: "  7  ", wantOK: true, want: 7},
		{name: "excel formula prefix", input: `="42"`, wantOK: true, want: 42},
		{name: "quoted", input: `"42"`, wantOK: true, want: 42},
		{name: "scientific notation", input: "1.5e3", wantOK: true, want: 1500},
		{name: "negative", input: "-5", wantOK: true, want: -5},

		// Missing
		{name: "empty", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
		{name: "NA marker", input: "NA", wantOK: false},
		{name: "lowercase na", input: "na", wantOK: false},
		{name: "null marker", input: "NULL", wantOK: false},
		{name: "NaN marker", input: "NaN", wantOK: false},
		{name: "dot-dot marker", input: "..", wantOK: false},

		// Invalid
		{name: "text", input: "abc", wantOK: false},
		{name: "mixed", input: "12abc", wantOK: false},
		{name: "two decimal points", input: "1.2.3", wantOK: false},
		{name: "infinity", input: "Infinity", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseYear Tests
// ----------------------------------------------------------------------------

func TestParseYear(t *testing.T) {
	tests := []struct {
		input  string
		wantOK bool
		want   int
	}{
		{input: "2019", wantOK: true, want: 2019},
		{input: " 2010 ", wantOK: true, want: 2010},
		{input: "2019.0", wantOK: true, want: 2019},
		{input: "2019.5", wantOK: false},
		{input: "-2019", wantOK: false},
		{input: "year", wantOK: false},
		{input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseYear(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseYear(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseYear(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "  Kenya  ", want: "Kenya"},
		{input: `"Kenya"`, want: "Kenya"},
		{input: `="Kenya"`, want: "Kenya"},
		{input: "=Kenya", want: "Kenya"},
		{input: "Côte d'Ivoire", want: "Côte d'Ivoire"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
