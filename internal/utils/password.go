package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt hash of the admin password using the
// given cost. Hashed once at startup so the plaintext from the
// environment is never compared directly.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
