package enrollment

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"no digits", "abc", ""},
		{"one digit", "1", "(1"},
		{"area code", "11", "(11"},
		{"partial subscriber", "1199", "(11) 99"},
		{"six digits", "119999", "(11) 9999"},
		{"seven digits", "1199998", "(11) 9999-8"},
		{"landline", "1133334444", "(11) 3333-4444"},
		{"mobile", "11999998888", "(11) 99999-8888"},
		{"excess digits truncated", "1199999888877", "(11) 99999-8888"},
		{"already masked", "(11) 99999-8888", "(11) 99999-8888"},
		{"punctuation stripped", "+55 (11) 3333-4444", "(55) 11333-3444"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPhone(tt.raw))
		})
	}
}

func TestMaskPhone_ShapesAndIdempotence(t *testing.T) {
	shapes := []*regexp.Regexp{
		regexp.MustCompile(`^\(\d{1,2}$`),
		regexp.MustCompile(`^\(\d{2}\) \d{1,4}$`),
		regexp.MustCompile(`^\(\d{2}\) \d{4}-\d{1,4}$`),
		regexp.MustCompile(`^\(\d{2}\) \d{5}-\d{4}$`),
	}
	const source = "98765432109"

	for n := 0; n <= len(source); n++ {
		digits := source[:n]
		masked := MaskPhone(digits)

		assert.Equal(t, masked, MaskPhone(masked), "mask must be idempotent for %q", digits)

		if n == 0 {
			assert.Empty(t, masked)
			continue
		}
		matches := 0
		for _, shape := range shapes {
			if shape.MatchString(masked) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "%q should match exactly one shape", masked)
		assert.Equal(t, digits, PhoneDigits(masked))
	}
}

func TestPhoneDigits(t *testing.T) {
	assert.Equal(t, "11999998888", PhoneDigits("(11) 99999-8888"))
	assert.Equal(t, "", PhoneDigits(strings.Repeat("-", 4)))
}
