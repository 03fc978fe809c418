// Package service defines the domain-facing contracts of the session core and
// the small pieces of pure policy that sit next to them.
package service

// PasswordHasher hashes and verifies account passwords for the local identity provider.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Check reports whether password matches hash. Any malformed hash is a mismatch.
	Check(password, hash string) bool
}
