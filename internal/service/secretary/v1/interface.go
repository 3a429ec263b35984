// Package secretary provides password hashing and session token handling.
package secretary

// Secretary defines a set of methods for types implementing Secretary.
type Secretary interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
	GetTokenForUser(username string) (string, error)
	ValidateToken(accessToken string) (string, error)
	IsAdmin(username string) bool
}
