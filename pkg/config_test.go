package rawfit

import (
	"errors"
	"testing"
)

func TestParseBinRange(t *testing.T) {
	cases := []struct {
		value string
		want  [2]int
	}{
		{"(20,150)", [2]int{20, 150}},
		{"( 20 , 150 )", [2]int{20, 150}},
		{"(0,0)", [2]int{0, 0}},
	}
	for _, c := range cases {
		got, err := ParseBinRange("baseline_range", c.value)
		if err != nil {
			t.Errorf("ParseBinRange(%q) returned error: %v", c.value, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseBinRange(%q) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestParseBinRangeMalformed(t *testing.T) {
	for _, value := range []string{
		"",
		"20,150",
		"(20)",
		"(20,150",
		"(a,b)",
		"(150,20)",
		"(-1,5)",
	} {
		_, err := ParseBinRange("baseline_range", value)
		if err == nil {
			t.Errorf("ParseBinRange(%q) accepted a malformed range", value)
			continue
		}
		var rangeErr *ErrRangeFormat
		if !errors.As(err, &rangeErr) {
			t.Errorf("ParseBinRange(%q) error type = %T, want *ErrRangeFormat", value, err)
		}
	}
}
