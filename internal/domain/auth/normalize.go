package auth

import "strings"

// Emails are unique case-insensitively; usernames keep their case.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
