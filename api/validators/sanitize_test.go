package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		max   int
		want  string
	}{
		{name: "trims whitespace", in: "  Gold Bullion 1oz  ", max: 64, want: "Gold Bullion 1oz"},
		{name: "strips control chars", in: "Vault\tSeries\x00A", max: 64, want: "VaultSeriesA"},
		{name: "caps length", in: "abcdefgh", max: 4, want: "abcd"},
		{name: "zero max keeps all", in: "unbounded", max: 0, want: "unbounded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.in, tc.max); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
