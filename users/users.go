// Package users holds the accounts of the development backend.
package users

import (
	"errors"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Type is the account type, which decides the permissions of the client.
type Type string

const (
	TypeAdmin      Type = "admin"
	TypeEmployee   Type = "employee"
	TypeAccountant Type = "accountant"
	TypeCustomer   Type = "customer"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAdmin, TypeEmployee, TypeAccountant, TypeCustomer:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`                   // Unique identifier for the user
	Name         string    `json:"name"`                 // Display name
	Username     string    `json:"username"`             // Unique login name
	PasswordHash string    `json:"-"`                    // Hashed version of the user's password - never serialize
	Type         Type      `json:"type"`                 // Account type
	Role         string    `json:"role,omitempty"`       // Optional role label shown in the profile
	Gender       string    `json:"gender,omitempty"`     // Gender, free text
	Phone        string    `json:"phone,omitempty"`      // Phone number
	Image        string    `json:"image,omitempty"`      // Profile image path
	BranchID     int64     `json:"branch_id,omitempty"`  // Branch the account works in, zero for admins
	DateJoined   time.Time `json:"date_joined"`          // Date and time when the account was created
	LastLogin    time.Time `json:"last_login,omitempty"` // Last time the user logged in

	Blocked bool `json:"blocked,omitempty"` // Blocked, has the user been blocked from logging in
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return errors.New("The password must be at least 8 characters.")
	}

	var (
		hasLetter bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsLetter(char) {
			hasLetter = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasLetter || !hasNumber {
		return errors.New("The password must contain letters and numbers.")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// SetPassword replaces the stored hash.
func (u *User) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}
