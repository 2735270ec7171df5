package entity

import (
	"strings"
	"time"

	"otp-auth/pkg/apperr"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	Base
	Email Email    `db:"email"`
	Name  string   `db:"name"`
	Role  UserRole `db:"role"`
}

func NewUser(email Email, name string, role UserRole, now time.Time) *User {
	if role == "" {
		role = RoleUser
	}
	return &User{
		Base: Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email: email,
		Name:  strings.TrimSpace(name),
		Role:  role,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidateName trims a display name and rejects blank ones.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("Name cannot be empty")
	}
	return name, nil
}

// Rename sets a new display name. Blank names are rejected.
func (u *User) Rename(name string, now time.Time) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	u.Name = name
	u.UpdatedAt = now
	return nil
}
