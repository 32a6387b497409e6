// Copyright (c) 2026 Inkpress. All rights reserved.

package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/inkpress/inkpress/internal/core/post"
	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/sec"
	"github.com/inkpress/inkpress/internal/platform/validate"
	"github.com/inkpress/inkpress/pkg/pagination"
)

// # Service Layer

// Service orchestrates account registration, profile updates, and role
// administration. It also acts as the authorship directory for the
// content engine.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new account [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// # Registration

/*
Register creates a new account with the default USER role.

Description: Username and email are unique across all accounts; the
password is stored as a bcrypt hash. New accounts start active.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: The persisted account
  - error: Conflict on a taken username or email, validation failures
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, MinUsernameLen).
		MaxLen(FieldUsername, input.Username, MaxUsernameLen).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if taken, err := service.repo.UsernameExists(context, input.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("User already exists with username: '" + input.Username + "'")
	}
	if taken, err := service.repo.EmailExists(context, input.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("User already exists with email: '" + input.Email + "'")
	}

	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	created := &User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         sec.RoleUser,
		IsActive:     true,
	}

	if err := service.repo.Create(context, created); err != nil {
		return nil, err
	}

	service.logger.Info("user_registered",
		slog.Int64("user_id", created.ID),
		slog.String("username", created.Username),
	)
	return created, nil
}

// # Profile Management

// GetUser fetches an account by ID.
func (service *Service) GetUser(context context.Context, id int64) (*User, error) {
	return service.repo.FindByID(context, id)
}

// GetUserByUsername fetches an account by username.
func (service *Service) GetUserByUsername(context context.Context, username string) (*User, error) {
	return service.repo.FindByUsername(context, username)
}

/*
UpdateProfile applies a partial set of changes to an account's profile.

Description: Nil input fields are left unchanged; set fields overwrite the
stored value, including setting it to empty.
*/
func (service *Service) UpdateProfile(context context.Context, id int64, input ProfileInput) (*User, error) {
	if input.Bio != nil {
		validator := &validate.Validator{}
		validator.MaxLen(FieldBio, *input.Bio, MaxBioLen)
		if err := validator.Err(); err != nil {
			return nil, err
		}
	}

	user, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = input.FirstName
	}
	if input.LastName != nil {
		user.LastName = input.LastName
	}
	if input.Bio != nil {
		user.Bio = input.Bio
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}
	if input.WebsiteURL != nil {
		user.WebsiteURL = input.WebsiteURL
	}

	if err := service.repo.Update(context, user); err != nil {
		return nil, err
	}

	service.logger.Info("user_profile_updated", slog.Int64("user_id", id))
	return user, nil
}

/*
ChangePassword replaces an account's password after verifying the current
one.

Returns:
  - error: Unauthorized if the current password does not match
*/
func (service *Service) ChangePassword(context context.Context, id int64, currentPassword, newPassword string) error {
	validator := &validate.Validator{}
	validator.
		Required(FieldPassword, newPassword).
		MinLen(FieldPassword, newPassword, MinPasswordLen)
	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.repo.FindByID(context, id)
	if err != nil {
		return err
	}
	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := service.repo.UpdatePassword(context, id, hash); err != nil {
		return err
	}

	service.logger.Info("user_password_changed", slog.Int64("user_id", id))
	return nil
}

// # Administration

/*
UpdateRole assigns a new role to an account.

Returns:
  - error: InvalidRole when the role string is not a recognized role
*/
func (service *Service) UpdateRole(context context.Context, id int64, role string) (*User, error) {
	target := sec.UserRole(role)
	if !target.IsValid() {
		return nil, apperr.InvalidRole(role)
	}

	user, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	if err := service.repo.UpdateRole(context, id, target); err != nil {
		return nil, err
	}
	user.Role = target

	service.logger.Info("user_role_updated",
		slog.Int64("user_id", id),
		slog.String("role", role),
	)
	return user, nil
}

// SetActive activates or deactivates an account. Deactivated accounts
// keep their content but can no longer authenticate.
func (service *Service) SetActive(context context.Context, id int64, active bool) (*User, error) {
	user, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	if err := service.repo.SetActive(context, id, active); err != nil {
		return nil, err
	}
	user.IsActive = active

	service.logger.Info("user_active_changed",
		slog.Int64("user_id", id),
		slog.Bool("is_active", active),
	)
	return user, nil
}

// DeleteUser removes an account permanently.
func (service *Service) DeleteUser(context context.Context, id int64) error {
	if _, err := service.repo.FindByID(context, id); err != nil {
		return err
	}
	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.logger.Warn("user_deleted", slog.Int64("user_id", id))
	return nil
}

// ListUsers returns the paginated account roster.
func (service *Service) ListUsers(context context.Context, params pagination.Params) (pagination.Response[*User], error) {
	users, total, err := service.repo.List(context, params.Size, params.Offset())
	if err != nil {
		return pagination.Response[*User]{}, err
	}
	return pagination.NewResponse(users, params.Page, params.Size, total), nil
}

// Authors returns active users with at least one published post.
func (service *Service) Authors(context context.Context) ([]*User, error) {
	return service.repo.Authors(context)
}

// CountUsers exposes the account total for dashboard statistics.
func (service *Service) CountUsers(context context.Context) (int, error) {
	return service.repo.Count(context)
}

// # Authorship Directory

// FindAuthorByUsername resolves an author reference for the content engine.
func (service *Service) FindAuthorByUsername(context context.Context, username string) (*post.AuthorRef, error) {
	user, err := service.repo.FindByUsername(context, username)
	if err != nil {
		return nil, err
	}
	return authorRef(user), nil
}

// FindAuthorByID resolves an author reference for the content engine.
func (service *Service) FindAuthorByID(context context.Context, id int64) (*post.AuthorRef, error) {
	user, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}
	return authorRef(user), nil
}

func authorRef(user *User) *post.AuthorRef {
	return &post.AuthorRef{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
	}
}
