package shared

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt digest from a plaintext password.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// ComparePassword reports whether plaintext matches the stored digest.
func ComparePassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
