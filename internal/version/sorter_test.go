package version

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSortVersionsDescending(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "numeric segments beat string order",
			in:   []string{"1.9", "1.10", "1.21.1", "1.2.10", "1.2.9"},
			want: []string{"1.21.1", "1.10", "1.9", "1.2.10", "1.2.9"},
		},
		{
			name: "shorter version sorts below its extensions",
			in:   []string{"1.21", "1.21.1", "1.21.4"},
			want: []string{"1.21.4", "1.21.1", "1.21"},
		},
		{
			name: "non-numeric suffix counts as a newer build",
			in:   []string{"1.16.5", "1.16.5a", "1.16.4"},
			want: []string{"1.16.5a", "1.16.5", "1.16.4"},
		},
		{
			name: "forge-style triples",
			in:   []string{"47.2.0", "47.10.1", "47.2.17"},
			want: []string{"47.10.1", "47.2.17", "47.2.0"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := append([]string(nil), tc.in...)
			sortVersionsDescending(got)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
