package chain

import (
	"math/big"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"500", 18, "500000000000000000000", false},
		{"1.5", 18, "1500000000000000000", false},
		{"0.000000000000000001", 18, "1", false},
		{"1000000", 18, "1000000000000000000000000", false},
		{"2.5", 2, "250", false},
		// Extraneous fractional digits are truncated, not rounded
		{"1.239", 2, "123", false},
		{"0.999999", 0, "0", false},
		{".5", 1, "5", false},
		{"0", 18, "0", false},
		{"", 18, "", true},
		{"-5", 18, "", true},
		{"1,5", 18, "", true},
		{"abc", 18, "", true},
		{"1.2.3", 18, "", true},
	}

	for _, tt := range tests {
		got, err := parseAmount(tt.in, tt.decimals)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAmount(%q, %d): expected error, got %s", tt.in, tt.decimals, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAmount(%q, %d): %v", tt.in, tt.decimals, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("parseAmount(%q, %d) = %s, want %s", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		atomic   string
		decimals uint8
		want     string
	}{
		{"500000000000000000000", 18, "500.0"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0.0"},
		{"250", 2, "2.5"},
		{"123", 2, "1.23"},
		{"7", 0, "7"},
		{"5", 1, "0.5"},
	}

	for _, tt := range tests {
		atomic, _ := new(big.Int).SetString(tt.atomic, 10)
		if got := formatAmount(atomic, tt.decimals); got != tt.want {
			t.Errorf("formatAmount(%s, %d) = %q, want %q", tt.atomic, tt.decimals, got, tt.want)
		}
	}
}

// Round trip: any amount string with at most d fractional digits survives
// parse -> format after trailing-zero normalisation.
func TestAmountRoundTrip(t *testing.T) {
	for _, in := range []string{"500", "1.5", "0.25", "99999.000001", "0.000000000000000001"} {
		atomic, err := parseAmount(in, 18)
		if err != nil {
			t.Fatalf("parseAmount(%q): %v", in, err)
		}
		out := formatAmount(atomic, 18)
		back, err := parseAmount(out, 18)
		if err != nil {
			t.Fatalf("parseAmount(%q): %v", out, err)
		}
		if atomic.Cmp(back) != 0 {
			t.Errorf("round trip %q -> %s -> %q -> %s lost value", in, atomic, out, back)
		}
	}
}
