package domainerr

import (
	"strings"
	"unicode"
)

// Kebab converts codes like ErrInvalidToken or USER_NOT_FOUND to
// kebab-case: err-invalid-token, user-not-found.
func Kebab(s string) string {
	var b strings.Builder
	prevIsLowerOrDigit := false
	for _, r := range s {
		switch r {
		case '_', ' ', '-':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevIsLowerOrDigit = false
			continue
		}
		if unicode.IsUpper(r) && prevIsLowerOrDigit {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
		prevIsLowerOrDigit = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.Trim(b.String(), "-")
}
