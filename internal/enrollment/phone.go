package enrollment

import "strings"

// MaxPhoneDigits is the digit count of a mobile number with area code.
const MaxPhoneDigits = 11

// PhoneDigits strips everything but ASCII digits.
func PhoneDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskPhone formats raw phone input as it is typed:
//
//	1-2 digits   (DD
//	3-6 digits   (DD) DDDD
//	7-10 digits  (DD) DDDD-DDDD
//	11+ digits   (DD) DDDDD-DDDD, extra digits dropped
//
// Input without digits masks to "". MaskPhone(MaskPhone(s)) == MaskPhone(s).
func MaskPhone(raw string) string {
	d := PhoneDigits(raw)
	switch n := len(d); {
	case n == 0:
		return ""
	case n <= 2:
		return "(" + d
	case n <= 6:
		return "(" + d[:2] + ") " + d[2:]
	case n <= 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		d = d[:MaxPhoneDigits]
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

// validPhoneDigits accepts a 10 digit landline or an 11 digit mobile number
// whose subscriber part starts with 9.
func validPhoneDigits(d string) bool {
	switch len(d) {
	case 10:
		return true
	case 11:
		return d[2] == '9'
	}
	return false
}
