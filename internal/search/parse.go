package search

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// NormalizeTitle returns the dedup identity of a title: trimmed, internal
// whitespace collapsed, lower-cased.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// ParseRating parses a 0-10 rating. Empty, "N/A", non-numeric and
// out-of-range values yield nil.
func ParseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 10 {
		return nil
	}
	return lo.ToPtr(v)
}

// RatingFromFloat validates an already numeric rating.
func RatingFromFloat(v float64) *float64 {
	if v < 0 || v > 10 {
		return nil
	}
	return lo.ToPtr(v)
}

// ExtractYear returns the first 1900-2099 year found in s, or nil.
func ExtractYear(s string) *int {
	m := yearPattern.FindString(s)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return lo.ToPtr(y)
}

// LooseString is a JSON field that upstreams send either quoted or as a bare
// number. Numbers keep their shortest text form; null, booleans, objects and
// arrays decode to "" so one odd item never fails the whole response.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = LooseString(t)
	case float64:
		*s = LooseString(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		*s = ""
	}
	return nil
}

func (s LooseString) String() string {
	return string(s)
}
