package stores

import "strings"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func joinKey(prefix, id string) string {
	return prefix + ":" + id
}
