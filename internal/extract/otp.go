package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

var otpRegexp = regexp.MustCompile(`\b\d{6}\b`)

// FindOTP returns the first standalone six digit number in body. Full-width
// digits are folded to ASCII first.
func FindOTP(body string) (string, bool) {
	code := otpRegexp.FindString(width.Narrow.String(body))
	return code, code != ""
}

const resetPasswordPhrase = "reset password"

func isResetPassword(s Summary) bool {
	lower := cases.Lower(language.Und).String(s.Subject + s.Body)
	return strings.Contains(lower, resetPasswordPhrase)
}
