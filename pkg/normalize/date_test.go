package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{} // string or nil
	}{
		{name: "iso date", input: "1968-10-16", want: "1968-10-16"},
		{name: "iso timestamp", input: "2005-12-02T10:30:00Z", want: "2005-12-02"},
		{name: "slashed year first", input: "1998/07/04", want: "1998-07-04"},
		{name: "long month name", input: "October 16, 1968", want: "1968-10-16"},
		{name: "day month year", input: "16 October 1968", want: "1968-10-16"},
		{name: "single digit day", input: "2001-3-7", want: "2001-03-07"},
		{name: "year month day words", input: "1968 October 16", want: "1968-10-16"},
		{name: "month year day words", input: "October 1968 16", want: "1968-10-16"},
		{name: "lower case month", input: "1968 october 16", want: "1968-10-16"},
		{name: "padded month", input: "May 2002 30", want: "2002-05-30"},
		{name: "surrounding whitespace", input: "  1968 October 16 ", want: "1968-10-16"},
		{name: "year month day single digit day", input: "1968 October 5", want: "1968-10-05"},
		{name: "month year day single digit day", input: "October 1968 5", want: "1968-10-05"},
		{name: "abbreviated month", input: "Jul 14 1961", want: "1961-07-14"},
		{name: "compact digits", input: "20050726", want: "2005-07-26"},
		{name: "slashed month first", input: "07/14/1961", want: "1961-07-14"},
		{name: "slashed day first", input: "14/07/1961", want: "1961-07-14"},
		{name: "day kept verbatim", input: "2018 February 31", want: "2018-02-31"},
		{name: "non ascii year digits", input: "١٩٦٨ October 16", want: nil},
		{name: "unknown month", input: "1968 Octember 16", want: nil},
		{name: "abbreviated month in fallback", input: "1968 Oct 16x", want: nil},
		{name: "non numeric year", input: "October abc 16", want: nil},
		{name: "too few tokens", input: "October 1968", want: nil},
		{name: "too many tokens", input: "not a date at all", want: nil},
		{name: "garbage", input: "not a date", want: nil},
		{name: "time only", input: "3:04PM", want: nil},
		{name: "empty", input: "", want: nil},
		{name: "nil", input: nil, want: nil},
		{name: "nan", input: math.NaN(), want: nil},
		{name: "number", input: 19681016, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Date(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestDateFixedPoint(t *testing.T) {
	inputs := []string{
		"1968-10-16",
		"2005-12-02T10:30:00Z",
		"1998/07/04",
		"1968 October 16",
		"October 1968 16",
		"January 2, 2006",
		"1968 October 5",
		"Jul 14 1961",
		"20050726",
		"14/07/1961",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first := Date(in)
			require.NotNil(t, first)
			second := Date(*first)
			require.NotNil(t, second)
			assert.Equal(t, *first, *second)
		})
	}
}
