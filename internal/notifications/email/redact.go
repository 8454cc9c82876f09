package email

import (
	"strings"
	"unicode/utf8"
)

// RedactEmail masks an address for logging: "john@gmail.com" becomes
// "j***@gmail.com". Input without an "@" is masked entirely.
func RedactEmail(addr string) string {
	if addr == "" {
		return ""
	}

	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	_, size := utf8.DecodeRuneInString(local)
	return local[:size] + "***@" + domain
}
