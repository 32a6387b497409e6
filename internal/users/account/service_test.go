// Copyright (c) 2026 Inkpress. All rights reserved.

package account_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/sec"
	"github.com/inkpress/inkpress/internal/users/account"
	"github.com/inkpress/inkpress/pkg/pointer"
)

// fakeRepository is an in-memory [account.Repository] for service tests.
type fakeRepository struct {
	users  map[int64]*account.User
	nextID int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[int64]*account.User), nextID: 1}
}

func (r *fakeRepository) FindByID(_ context.Context, id int64) (*account.User, error) {
	if found, ok := r.users[id]; ok {
		snapshot := *found
		return &snapshot, nil
	}
	return nil, apperr.NotFound("User", "id", fmt.Sprint(id))
}

func (r *fakeRepository) FindByUsername(_ context.Context, username string) (*account.User, error) {
	for _, found := range r.users {
		if found.Username == username {
			snapshot := *found
			return &snapshot, nil
		}
	}
	return nil, apperr.NotFound("User", "username", username)
}

func (r *fakeRepository) FindByEmail(_ context.Context, email string) (*account.User, error) {
	for _, found := range r.users {
		if found.Email == email {
			snapshot := *found
			return &snapshot, nil
		}
	}
	return nil, apperr.NotFound("User", "email", email)
}

func (r *fakeRepository) List(_ context.Context, limit, offset int) ([]*account.User, int, error) {
	all := make([]*account.User, 0, len(r.users))
	for _, found := range r.users {
		snapshot := *found
		all = append(all, &snapshot)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *fakeRepository) Authors(_ context.Context) ([]*account.User, error) {
	return nil, nil
}

func (r *fakeRepository) Create(_ context.Context, user *account.User) error {
	user.ID = r.nextID
	r.nextID++
	snapshot := *user
	r.users[user.ID] = &snapshot
	return nil
}

func (r *fakeRepository) Update(_ context.Context, user *account.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return apperr.NotFound("User", "id", fmt.Sprint(user.ID))
	}
	snapshot := *user
	r.users[user.ID] = &snapshot
	return nil
}

func (r *fakeRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	existing, ok := r.users[id]
	if !ok {
		return apperr.NotFound("User", "id", fmt.Sprint(id))
	}
	existing.PasswordHash = passwordHash
	return nil
}

func (r *fakeRepository) UpdateRole(_ context.Context, id int64, role sec.UserRole) error {
	existing, ok := r.users[id]
	if !ok {
		return apperr.NotFound("User", "id", fmt.Sprint(id))
	}
	existing.Role = role
	return nil
}

func (r *fakeRepository) SetActive(_ context.Context, id int64, active bool) error {
	existing, ok := r.users[id]
	if !ok {
		return apperr.NotFound("User", "id", fmt.Sprint(id))
	}
	existing.IsActive = active
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return apperr.NotFound("User", "id", fmt.Sprint(id))
	}
	delete(r.users, id)
	return nil
}

func (r *fakeRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(context.Background(), username)
	return err == nil, nil
}

func (r *fakeRepository) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(context.Background(), email)
	return err == nil, nil
}

func (r *fakeRepository) Count(_ context.Context) (int, error) {
	return len(r.users), nil
}

func newService(repo account.Repository) *account.Service {
	return account.NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func register(t *testing.T, service *account.Service, username string) *account.User {
	t.Helper()
	created, err := service.Register(context.Background(), account.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return created
}

/*
TestRegister verifies the default role, activation, and hashed password.
*/
func TestRegister(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := register(t, service, "alice")

	assert.Equal(t, sec.RoleUser, created.Role)
	assert.True(t, created.IsActive)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "correct-horse", created.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("correct-horse", created.PasswordHash))
}

/*
TestRegister_Conflicts verifies username and email uniqueness.
*/
func TestRegister_Conflicts(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	register(t, service, "alice")

	_, err := service.Register(context.Background(), account.RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)

	_, err = service.Register(context.Background(), account.RegisterInput{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	ae = apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
}

/*
TestRegister_Validation rejects short usernames, bad emails, and weak
passwords before any store interaction.
*/
func TestRegister_Validation(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	_, err := service.Register(context.Background(), account.RegisterInput{
		Username: "ab",
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	assert.Empty(t, repo.users)
}

/*
TestUpdateProfile verifies delta semantics: nil fields untouched, set
fields overwritten.
*/
func TestUpdateProfile(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := register(t, service, "alice")

	updated, err := service.UpdateProfile(context.Background(), created.ID, account.ProfileInput{
		FirstName: pointer.To("Alice"),
		Bio:       pointer.To("Writes about Go."),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Alice", *updated.FirstName)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "Writes about Go.", *updated.Bio)
	assert.Nil(t, updated.LastName)
	assert.Equal(t, "Alice", updated.DisplayName())
}

/*
TestChangePassword verifies current-password verification and rehashing.
*/
func TestChangePassword(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := register(t, service, "alice")

	err := service.ChangePassword(context.Background(), created.ID, "wrong-guess", "new-password-1")
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "UNAUTHORIZED", ae.Code)

	require.NoError(t, service.ChangePassword(context.Background(), created.ID, "correct-horse", "new-password-1"))
	assert.True(t, sec.CheckPasswordHash("new-password-1", repo.users[created.ID].PasswordHash))
}

/*
TestUpdateRole covers promotion and the unrecognized role rejection.
*/
func TestUpdateRole(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := register(t, service, "alice")

	promoted, err := service.UpdateRole(context.Background(), created.ID, "MODERATOR")
	require.NoError(t, err)
	assert.Equal(t, sec.RoleModerator, promoted.Role)

	_, err = service.UpdateRole(context.Background(), created.ID, "OVERLORD")
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "INVALID_ROLE", ae.Code)
	assert.Equal(t, sec.RoleModerator, repo.users[created.ID].Role)
}

/*
TestSetActive deactivates and reactivates an account.
*/
func TestSetActive(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := register(t, service, "alice")

	deactivated, err := service.SetActive(context.Background(), created.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	reactivated, err := service.SetActive(context.Background(), created.ID, true)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)
}

/*
TestAuthorDirectory verifies the author reference resolution consumed by
the content engine.
*/
func TestAuthorDirectory(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := register(t, service, "alice")
	_, err := service.UpdateProfile(context.Background(), created.ID, account.ProfileInput{
		FirstName: pointer.To("Alice"),
		LastName:  pointer.To("Walker"),
	})
	require.NoError(t, err)

	ref, err := service.FindAuthorByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, ref.ID)
	assert.Equal(t, "alice", ref.Username)
	assert.Equal(t, "Alice Walker", ref.DisplayName)

	_, err = service.FindAuthorByUsername(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}
