package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// Scrubber rewrites a single non-missing value
type Scrubber func(value interface{}) interface{}

// DigitsOnly keeps the characters 0-9 and drops everything else
func DigitsOnly(value interface{}) interface{} {
	s := cast.ToString(value)
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// TrailingCode keeps the last n characters of the value
func TrailingCode(n int) Scrubber {
	return func(value interface{}) interface{} {
		s := cast.ToString(value)
		if utf8.RuneCountInString(s) <= n {
			return s
		}
		r := []rune(s)
		return string(r[len(r)-n:])
	}
}

// StripSubstring removes every occurrence of sub, repeating until none remain
func StripSubstring(sub string) Scrubber {
	return func(value interface{}) interface{} {
		s, ok := value.(string)
		if !ok || sub == "" {
			return value
		}
		for strings.Contains(s, sub) {
			s = strings.ReplaceAll(s, sub, "")
		}
		return s
	}
}

// DefaultOnSentinel replaces an exact sentinel value with def
func DefaultOnSentinel(sentinel string, def interface{}) Scrubber {
	return func(value interface{}) interface{} {
		if s, ok := value.(string); ok && s == sentinel {
			return def
		}
		return value
	}
}

// Apply runs a scrubber unless the value is missing
func Apply(s Scrubber, value interface{}) interface{} {
	if model.IsMissing(value) {
		return value
	}
	return s(value)
}
