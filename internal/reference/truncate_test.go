package reference

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		max  int
		min  int
		want string
	}{
		{name: "short_input", raw: "  Hello there.  ", max: 100, min: 10, want: "Hello there."},
		{name: "sentence_boundary", raw: "One two. Three four. Five six seven.", max: 25, min: 5, want: "One two. Three four."},
		{name: "boundary_below_min", raw: "Hi. abcdefghijklmnopqrstuvwxyz", max: 10, min: 5, want: "Hi. abcdef"},
		{name: "no_boundary", raw: "abcdefghijklmnopqrstuvwxyz", max: 5, min: 2, want: "abcde"},
		{name: "decimal_is_not_boundary", raw: "Pi is 3.14 roughly and more", max: 12, min: 2, want: "Pi is 3.14 r"},
		{name: "newline", raw: "Title\nBody text continues here", max: 12, min: 3, want: "Title"},
		{name: "zero_max", raw: "anything", max: 0, min: 0, want: "anything"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Truncate(tc.raw, tc.max, tc.min); got != tc.want {
				t.Fatalf("Truncate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTruncateRespectsMinimum(t *testing.T) {
	raw := "A. " + strings.Repeat("x", 200)
	got := Truncate(raw, 50, 40)
	if n := len([]rune(got)); n < 40 || n > 50 {
		t.Fatalf("len = %d, want within [40,50]", n)
	}
}
