package util

import (
	"github.com/Peripli/service-manager/pkg/util"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// GenerateBasicCredentials generates a random user and password for protecting the gallery together with
// the bcrypt hash of the password that goes into the gallery password_hash setting
func GenerateBasicCredentials() (string, string, string, error) {
	username, err := util.GenerateCredential()
	if err != nil {
		return "", "", "", errors.Wrap(err, "error generating username")
	}

	password, err := util.GenerateCredential()
	if err != nil {
		return "", "", "", errors.Wrap(err, "error generating password")
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return "", "", "", err
	}

	return username, password, passwordHash, nil
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "error hashing password")
	}
	return string(passwordHash), nil
}
