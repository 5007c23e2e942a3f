package service

import "strconv"

// Cache key namespaces. Entries are advisory and expire after the configured
// cache TTL; deletion is exact-key or prefix-scan.
const (
	tokenKeyPrefix  = "token:"
	userKeyPrefix   = "user:"
	AdminUsersScope = "admin:users:"
)

// TokenKey caches the last token minted for a username.
func TokenKey(username string) string { return tokenKeyPrefix + username }

// UserKey caches existence/identity data keyed by username.
func UserKey(username string) string { return userKeyPrefix + username }

// UserIDKey caches identity data keyed by numeric id.
func UserIDKey(id int64) string { return userKeyPrefix + strconv.FormatInt(id, 10) }
