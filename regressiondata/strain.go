package regressiondata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedLabel is returned (wrapped) when a strain label does not end in
// a /-separated two digit year.
var ErrMalformedLabel = errors.New("malformed strain label")

// CenturyPivot is the first two digit year that is read as 19xx rather than
// 20xx. Labels from 2060 onward would be misread; none exist in the data.
const CenturyPivot = 60

// StrainYear parses the year out of a strain label such as "A/HK/1/68". The
// year is the two digits that follow the last slash.
func StrainYear(label string) (int, error) {
	i := strings.LastIndex(label, "/")
	if i < 0 {
		return 0, fmt.Errorf("%q has no /: %w", label, ErrMalformedLabel)
	}

	suffix := strings.TrimSpace(label[i+1:])
	if len(suffix) != 2 || !isDigit(suffix[0]) || !isDigit(suffix[1]) {
		return 0, fmt.Errorf("%q: year %q is not two digits: %w", label, suffix, ErrMalformedLabel)
	}
	yy, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("%q: %v: %w", label, err, ErrMalformedLabel)
	}

	return Century(yy), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Century maps a two digit year onto a four digit year.
func Century(yy int) int {
	if yy < CenturyPivot {
		return yy + 2000
	}
	return yy + 1900
}
