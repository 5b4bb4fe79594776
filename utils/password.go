package utils

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/viewlog/config"
)

// HashPassword returns the bcrypt hash used for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAdminPassword compares password with the configured admin hash.
// It is always false when no hash is configured.
func CheckAdminPassword(password string) bool {
	hash := config.Get().AdminPasswordHash
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AdminAuthEnabled reports whether admin pages require a login.
func AdminAuthEnabled() bool {
	return config.Get().AdminPasswordHash != ""
}
