// Package phone holds the canonical phone format used as the subscriber
// identity key. Login and billing must both go through Format.
package phone

import "strings"

const DefaultCountryCode = "234"

type Formatter struct {
	CountryCode string
}

func NewFormatter(countryCode string) Formatter {
	countryCode = digitsOnly(countryCode)
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return Formatter{CountryCode: countryCode}
}

// Format strips everything but digits, then rewrites a leading trunk 0 to the
// country code, or prefixes the country code when it is absent.
// Empty or digit-less input yields "".
func (f Formatter) Format(raw string) string {
	digits := digitsOnly(raw)
	if digits == "" {
		return ""
	}
	cc := f.CountryCode
	if cc == "" {
		cc = DefaultCountryCode
	}

	switch {
	case strings.HasPrefix(digits, "00"+cc):
		return digits[2:]
	case strings.HasPrefix(digits, "0"):
		return cc + strings.TrimLeft(digits, "0")
	case strings.HasPrefix(digits, cc):
		return digits
	default:
		return cc + digits
	}
}

// Format uses the default (Nigerian) country code.
func Format(raw string) string {
	return NewFormatter(DefaultCountryCode).Format(raw)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
