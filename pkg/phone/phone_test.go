package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "international with plus", raw: "+2348012345678", want: "2348012345678"},
		{name: "international digits", raw: "2348012345678", want: "2348012345678"},
		{name: "local trunk zero", raw: "08012345678", want: "2348012345678"},
		{name: "missing prefix", raw: "8012345678", want: "2348012345678"},
		{name: "spaces and dashes", raw: "+234 801-234-5678", want: "2348012345678"},
		{name: "parentheses", raw: "(0801) 234 5678", want: "2348012345678"},
		{name: "international dialing prefix", raw: "002348012345678", want: "2348012345678"},
		{name: "empty", raw: "", want: ""},
		{name: "no digits", raw: "phone", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.raw))
		})
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	for _, raw := range []string{"+2348012345678", "08012345678", "8012345678"} {
		once := Format(raw)
		assert.Equal(t, once, Format(once))
	}
}

func TestFormatterCustomCountryCode(t *testing.T) {
	f := NewFormatter("+233")
	assert.Equal(t, "233", f.CountryCode)
	assert.Equal(t, "233241234567", f.Format("0241234567"))
	assert.Equal(t, "233241234567", f.Format("233241234567"))
}

func TestNewFormatterDefaultsCountryCode(t *testing.T) {
	assert.Equal(t, DefaultCountryCode, NewFormatter("").CountryCode)
}
