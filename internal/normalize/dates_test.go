package normalize

import "testing"

func TestParseDate_Formats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"20240115", "2024-01-15"},
		{"2024-01-15", "2024-01-15"},
		{"01/15/2024", "2024-01-15"},
		{"2024-01-15T08:30:00Z", "2024-01-15"},
		{"  2024-01-15  ", "2024-01-15"},
	}
	for _, c := range cases {
		got := ParseDate(c.in)
		if got == nil {
			t.Fatalf("ParseDate(%q) returned nil", c.in)
		}
		if FormatDate(*got) != c.want {
			t.Errorf("ParseDate(%q) = %s, want %s", c.in, FormatDate(*got), c.want)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-date", "2024/99/99"} {
		if got := ParseDate(in); got != nil {
			t.Errorf("ParseDate(%q) = %v, want nil", in, got)
		}
	}
}
