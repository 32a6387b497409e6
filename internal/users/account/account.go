// Copyright (c) 2026 Inkpress. All rights reserved.

/*
Package account handles user registration, profiles, and role management.

It provides the authorship directory consumed by the content engine: posts
and comments reference accounts by id and username, and role checks for
moderation and administration resolve against this package.

# Architecture

  - Entities: User.
  - Security: Passwords are stored as bcrypt hashes, never in plain text.
  - Roles: USER, MODERATOR, ADMIN (see the sec package for the hierarchy).
*/
package account

import (
	"context"
	"strings"
	"time"

	"github.com/inkpress/inkpress/internal/platform/sec"
)

// # Domain Entities

// User is a registered account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`

	// PasswordHash never leaves the service boundary.
	PasswordHash string `json:"-"`

	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	WebsiteURL *string `json:"website_url,omitempty"`

	Role     sec.UserRole `json:"role"`
	IsActive bool         `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the user's full name, falling back to the username
// when no name parts are set.
func (user *User) DisplayName() string {
	parts := make([]string, 0, 2)
	if user.FirstName != nil && *user.FirstName != "" {
		parts = append(parts, *user.FirstName)
	}
	if user.LastName != nil && *user.LastName != "" {
		parts = append(parts, *user.LastName)
	}
	if len(parts) == 0 {
		return user.Username
	}
	return strings.Join(parts, " ")
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// ProfileInput is the mutable subset of profile fields. Nil fields are
// left unchanged.
type ProfileInput struct {
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	WebsiteURL *string `json:"website_url,omitempty"`
}

// Validation constants.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldBio      = "bio"

	MaxUsernameLen = 50
	MinUsernameLen = 3
	MinPasswordLen = 8
	MaxBioLen      = 1000
)

// # Repository Contract

// Repository is the persistence contract for accounts.
type Repository interface {
	FindByID(context context.Context, id int64) (*User, error)
	FindByUsername(context context.Context, username string) (*User, error)
	FindByEmail(context context.Context, email string) (*User, error)

	// List returns the paginated account roster, newest first, plus the
	// total count.
	List(context context.Context, limit, offset int) ([]*User, int, error)

	// Authors returns active users who have at least one published post.
	Authors(context context.Context) ([]*User, error)

	Create(context context.Context, user *User) error

	// Update writes the mutable profile fields.
	Update(context context.Context, user *User) error

	UpdatePassword(context context.Context, id int64, passwordHash string) error
	UpdateRole(context context.Context, id int64, role sec.UserRole) error

	// SetActive flips the activation flag.
	SetActive(context context.Context, id int64, active bool) error

	Delete(context context.Context, id int64) error

	UsernameExists(context context.Context, username string) (bool, error)
	EmailExists(context context.Context, email string) (bool, error)

	Count(context context.Context) (int, error)
}
