package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash for storage.  A cost outside
// bcrypt's supported range falls back to the library default instead of
// erroring, so a misconfigured BCRYPT_COST cannot block registration.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PasswordMatches reports whether plain is the password behind hash.
func PasswordMatches(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
