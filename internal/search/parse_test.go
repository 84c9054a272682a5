package search

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Inception", "inception"},
		{"  The   Matrix ", "the matrix"},
		{"THE\tMATRIX\n", "the matrix"},
		{"肖申克的救赎", "肖申克的救赎"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"8.8", ptr(8.8)},
		{" 9 ", ptr(9.0)},
		{"0", ptr(0.0)},
		{"10", ptr(10.0)},
		{"", nil},
		{"N/A", nil},
		{"n/a", nil},
		{"great", nil},
		{"10.5", nil},
		{"-1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseRating(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.0001)
		})
	}
}

func TestRatingFromFloat(t *testing.T) {
	assert.Nil(t, RatingFromFloat(11))
	assert.Nil(t, RatingFromFloat(-0.1))
	require.NotNil(t, RatingFromFloat(7.4))
	assert.InDelta(t, 7.4, *RatingFromFloat(7.4), 0.0001)
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"2010", ptr(2010)},
		{"2010-07-16", ptr(2010)},
		{"Inception (2010)", ptr(2010)},
		{"1994–1998", ptr(1994)},
		{"1899", nil},
		{"2100", nil},
		{"20101", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractYear(tt.in))
		})
	}
}

func TestLooseString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"9.6"`, "9.6"},
		{`8.1`, "8.1"},
		{`1994`, "1994"},
		{`null`, ""},
		{`true`, ""},
		{`{"a":1}`, ""},
		{`""`, ""},
	}

	for _, tt := range tests {
		var got LooseString
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}

func TestLooseString_FeedsParsers(t *testing.T) {
	var item struct {
		Rate LooseString `json:"rate"`
		Year LooseString `json:"year"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"rate":8.1,"year":1994}`), &item))
	assert.Equal(t, ptr(8.1), ParseRating(item.Rate.String()))
	assert.Equal(t, ptr(1994), ExtractYear(item.Year.String()))
}

func ptr[T any](v T) *T {
	return &v
}
