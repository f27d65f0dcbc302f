package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "442071234", DigitsOnly("+44 (0)207-1234"))
	assert.Equal(t, "", DigitsOnly("n/a"))
	assert.Equal(t, "123", DigitsOnly(int64(123)))
	assert.Equal(t, "30", DigitsOnly("J30"))
}

func TestTrailingCode(t *testing.T) {
	last2 := TrailingCode(2)
	assert.Equal(t, "GB", last2("GGB"))
	assert.Equal(t, "GB", last2("GB"))
	assert.Equal(t, "G", last2("G"))
	assert.Equal(t, "DE", last2(last2("xDE")))
}

func TestStripSubstring(t *testing.T) {
	stripEE := StripSubstring("ee")
	assert.Equal(t, "Europe", stripEE("eeEurope"))
	assert.Equal(t, "America", stripEE("eeAmerica"))
	assert.Equal(t, "e", stripEE("eeeee"))
	assert.Equal(t, 12, stripEE(12))

	stripQ := StripSubstring("?")
	assert.Equal(t, "4971858637664481", stripQ("??4971858637664481"))
}

func TestDefaultOnSentinel(t *testing.T) {
	def := DefaultOnSentinel("N/A", "0.0")
	assert.Equal(t, "0.0", def("N/A"))
	assert.Equal(t, "-0.12", def("-0.12"))
	assert.Equal(t, "n/a", def("n/a"))
}

func TestApplyKeepsMissing(t *testing.T) {
	assert.Nil(t, Apply(DigitsOnly, nil))
	assert.True(t, math.IsNaN(Apply(DigitsOnly, math.NaN()).(float64)))
	assert.Equal(t, "12", Apply(DigitsOnly, "1a2"))
}
