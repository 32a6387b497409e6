// Copyright (c) 2026 Inkpress. All rights reserved.

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkpress/inkpress/internal/platform/database/schema"
	"github.com/inkpress/inkpress/internal/platform/dberr"
	"github.com/inkpress/inkpress/internal/platform/sec"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed account store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// accountColumns is the standard projection used by account lookups.
func accountColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		schema.UsersAccount.ID, schema.UsersAccount.Username, schema.UsersAccount.Email,
		schema.UsersAccount.PasswordHash, schema.UsersAccount.FirstName, schema.UsersAccount.LastName,
		schema.UsersAccount.Bio, schema.UsersAccount.AvatarURL, schema.UsersAccount.WebsiteURL,
		schema.UsersAccount.Role, schema.UsersAccount.IsActive,
		schema.UsersAccount.CreatedAt, schema.UsersAccount.UpdatedAt)
}

// prefixed qualifies every column in a projection with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for index, part := range parts {
		parts[index] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email,
		&user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Bio, &user.AvatarURL, &user.WebsiteURL,
		&user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (repository *PostgresRepository) FindByID(context context.Context, id int64) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.UsersAccount.Table, schema.UsersAccount.ID)

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "User", "id", fmt.Sprint(id))
	}
	return user, nil
}

func (repository *PostgresRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.UsersAccount.Table, schema.UsersAccount.Username)

	user, err := scanUser(repository.db.QueryRow(context, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, "User", "username", username)
	}
	return user, nil
}

func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.UsersAccount.Table, schema.UsersAccount.Email)

	user, err := scanUser(repository.db.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "User", "email", email)
	}
	return user, nil
}

func (repository *PostgresRepository) List(context context.Context, limit, offset int) ([]*User, int, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s DESC LIMIT $1 OFFSET $2`,
		accountColumns(), schema.UsersAccount.Table, schema.UsersAccount.CreatedAt)

	rows, err := repository.db.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "User", "query", "list")
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "User", "query", "list")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "User", "query", "list")
	}

	total, err := repository.Count(context)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (repository *PostgresRepository) Authors(context context.Context) ([]*User, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM %s u
		JOIN %s p ON p.%s = u.%s
		WHERE u.%s = TRUE AND p.%s = 'PUBLISHED'
		ORDER BY u.%s ASC`,
		prefixed("u", accountColumns()), schema.UsersAccount.Table,
		schema.BlogPost.Table, schema.BlogPost.AuthorID, schema.UsersAccount.ID,
		schema.UsersAccount.IsActive, schema.BlogPost.Status,
		schema.UsersAccount.Username)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "User", "query", "authors")
	}
	defer rows.Close()

	authors := make([]*User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "User", "query", "authors")
		}
		authors = append(authors, user)
	}
	return authors, rows.Err()
}

func (repository *PostgresRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s, %s, %s`,
		schema.UsersAccount.Table,
		schema.UsersAccount.Username, schema.UsersAccount.Email, schema.UsersAccount.PasswordHash,
		schema.UsersAccount.FirstName, schema.UsersAccount.LastName,
		schema.UsersAccount.Role, schema.UsersAccount.IsActive,
		schema.UsersAccount.ID, schema.UsersAccount.CreatedAt, schema.UsersAccount.UpdatedAt)

	err := repository.db.QueryRow(context, query,
		user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "User", "username", user.Username)
	}
	return nil
}

func (repository *PostgresRepository) Update(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5, %s = NOW()
		WHERE %s = $6
		RETURNING %s`,
		schema.UsersAccount.Table,
		schema.UsersAccount.FirstName, schema.UsersAccount.LastName, schema.UsersAccount.Bio,
		schema.UsersAccount.AvatarURL, schema.UsersAccount.WebsiteURL, schema.UsersAccount.UpdatedAt,
		schema.UsersAccount.ID, schema.UsersAccount.UpdatedAt)

	err := repository.db.QueryRow(context, query,
		user.FirstName, user.LastName, user.Bio, user.AvatarURL, user.WebsiteURL, user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "User", "id", fmt.Sprint(user.ID))
	}
	return nil
}

func (repository *PostgresRepository) UpdatePassword(context context.Context, id int64, passwordHash string) error {
	return repository.exec(context, id, fmt.Sprintf(
		`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		schema.UsersAccount.Table, schema.UsersAccount.PasswordHash,
		schema.UsersAccount.UpdatedAt, schema.UsersAccount.ID), passwordHash, id)
}

func (repository *PostgresRepository) UpdateRole(context context.Context, id int64, role sec.UserRole) error {
	return repository.exec(context, id, fmt.Sprintf(
		`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		schema.UsersAccount.Table, schema.UsersAccount.Role,
		schema.UsersAccount.UpdatedAt, schema.UsersAccount.ID), role, id)
}

func (repository *PostgresRepository) SetActive(context context.Context, id int64, active bool) error {
	return repository.exec(context, id, fmt.Sprintf(
		`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		schema.UsersAccount.Table, schema.UsersAccount.IsActive,
		schema.UsersAccount.UpdatedAt, schema.UsersAccount.ID), active, id)
}

func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	return repository.exec(context, id, fmt.Sprintf(
		`DELETE FROM %s WHERE %s = $1`,
		schema.UsersAccount.Table, schema.UsersAccount.ID), id)
}

func (repository *PostgresRepository) UsernameExists(context context.Context, username string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		schema.UsersAccount.Table, schema.UsersAccount.Username)

	var exists bool
	if err := repository.db.QueryRow(context, query, username).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "User", "username", username)
	}
	return exists, nil
}

func (repository *PostgresRepository) EmailExists(context context.Context, email string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		schema.UsersAccount.Table, schema.UsersAccount.Email)

	var exists bool
	if err := repository.db.QueryRow(context, query, email).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "User", "email", email)
	}
	return exists, nil
}

func (repository *PostgresRepository) Count(context context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.UsersAccount.Table)

	var count int
	if err := repository.db.QueryRow(context, query).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "User", "count", "all")
	}
	return count, nil
}

// exec runs a single-row statement and maps an empty result to NotFound.
func (repository *PostgresRepository) exec(context context.Context, id int64, query string, args ...any) error {
	result, err := repository.db.Exec(context, query, args...)
	if err != nil {
		return dberr.Wrap(err, "User", "id", fmt.Sprint(id))
	}
	if result.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User", "id", fmt.Sprint(id))
	}
	return nil
}
