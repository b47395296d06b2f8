package email

import (
	"strings"
	"unicode"
)

const fallbackName = "Recruiter"

// DisplayNameFromEmail builds a readable default display name from the local
// part of an address: "jane.doe+jobs@x.io" becomes "Jane Doe Jobs".
func DisplayNameFromEmail(address string) string {
	local := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		local = address[:at]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return fallbackName
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
