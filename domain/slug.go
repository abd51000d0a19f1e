package domain

import "strings"

// Slugify lowercases the input, collapses every run of non-alphanumeric characters
// into a single hyphen and trims leading and trailing hyphens.
// Slugify("User Management Create User") == "user-management-create-user".
func Slugify(text string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, c := range strings.ToLower(text) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(c)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}
