package tag

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkpress/inkpress/internal/platform/database/schema"
	"github.com/inkpress/inkpress/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed tag store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// tagColumns is the standard projection used by single-row lookups.
func tagColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s",
		schema.BlogTag.ID, schema.BlogTag.Name, schema.BlogTag.Slug,
		schema.BlogTag.Description, schema.BlogTag.Color, schema.BlogTag.CreatedAt)
}

func scanTag(row interface{ Scan(...any) error }) (*Tag, error) {
	tag := &Tag{}
	err := row.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Description, &tag.Color, &tag.CreatedAt)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (repository *PostgresRepository) FindByID(context context.Context, id int64) (*Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		tagColumns(), schema.BlogTag.Table, schema.BlogTag.ID)

	tag, err := scanTag(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Tag", "id", fmt.Sprint(id))
	}
	return tag, nil
}

func (repository *PostgresRepository) FindBySlug(context context.Context, slug string) (*Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		tagColumns(), schema.BlogTag.Table, schema.BlogTag.Slug)

	tag, err := scanTag(repository.db.QueryRow(context, query, slug))
	if err != nil {
		return nil, dberr.Wrap(err, "Tag", "slug", slug)
	}
	return tag, nil
}

func (repository *PostgresRepository) FindByName(context context.Context, name string) (*Tag, error) {
	// Exact, case-sensitive match; resolution identity depends on it.
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		tagColumns(), schema.BlogTag.Table, schema.BlogTag.Name)

	tag, err := scanTag(repository.db.QueryRow(context, query, name))
	if err != nil {
		return nil, dberr.Wrap(err, "Tag", "name", name)
	}
	return tag, nil
}

func (repository *PostgresRepository) List(context context.Context) ([]*Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		tagColumns(), schema.BlogTag.Table, schema.BlogTag.Name)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "Tag", "list", "all")
	}
	defer rows.Close()

	tags := make([]*Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "Tag", "list", "all")
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

/*
Popular returns the most used tags ordered by how many published posts
reference them, including the usage count.
*/
func (repository *PostgresRepository) Popular(context context.Context, limit int) ([]*Tag, error) {
	query := fmt.Sprintf(`
		SELECT t.%s, t.%s, t.%s, t.%s, t.%s, t.%s, COUNT(pt.%s) AS post_count
		FROM %s t
		JOIN %s pt ON pt.%s = t.%s
		JOIN %s p ON p.%s = pt.%s AND p.%s = 'PUBLISHED'
		GROUP BY t.%s
		ORDER BY post_count DESC, t.%s ASC
		LIMIT $1
	`,
		schema.BlogTag.ID, schema.BlogTag.Name, schema.BlogTag.Slug,
		schema.BlogTag.Description, schema.BlogTag.Color, schema.BlogTag.CreatedAt,
		schema.BlogPostTag.PostID,
		schema.BlogTag.Table,
		schema.BlogPostTag.Table, schema.BlogPostTag.TagID, schema.BlogTag.ID,
		schema.BlogPost.Table, schema.BlogPost.ID, schema.BlogPostTag.PostID, schema.BlogPost.Status,
		schema.BlogTag.ID,
		schema.BlogTag.Name,
	)

	rows, err := repository.db.Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "Tag", "list", "popular")
	}
	defer rows.Close()

	tags := make([]*Tag, 0, limit)
	for rows.Next() {
		tag := &Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Description,
			&tag.Color, &tag.CreatedAt, &tag.PostCount); err != nil {
			return nil, dberr.Wrap(err, "Tag", "list", "popular")
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (repository *PostgresRepository) Search(context context.Context, searchQuery string, limit, offset int) ([]*Tag, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s ILIKE '%%' || $1 || '%%' OR %s ILIKE '%%' || $1 || '%%'
		ORDER BY %s ASC
		LIMIT $2 OFFSET $3
	`,
		tagColumns(), schema.BlogTag.Table,
		schema.BlogTag.Name, schema.BlogTag.Description,
		schema.BlogTag.Name,
	)

	rows, err := repository.db.Query(context, query, searchQuery, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Tag", "search", searchQuery)
	}
	defer rows.Close()

	tags := make([]*Tag, 0)
	total := 0
	for rows.Next() {
		tag := &Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Description,
			&tag.Color, &tag.CreatedAt, &total); err != nil {
			return nil, 0, dberr.Wrap(err, "Tag", "search", searchQuery)
		}
		tags = append(tags, tag)
	}
	return tags, total, rows.Err()
}

func (repository *PostgresRepository) Create(context context.Context, tag *Tag) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING %s, %s
	`,
		schema.BlogTag.Table,
		schema.BlogTag.Name, schema.BlogTag.Slug, schema.BlogTag.Description, schema.BlogTag.Color,
		schema.BlogTag.ID, schema.BlogTag.CreatedAt,
	)

	err := repository.db.QueryRow(context, query,
		tag.Name, tag.Slug, tag.Description, tag.Color,
	).Scan(&tag.ID, &tag.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, "Tag", "name", tag.Name)
	}
	return nil
}

func (repository *PostgresRepository) Update(context context.Context, tag *Tag) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5
		WHERE %s = $1
	`,
		schema.BlogTag.Table,
		schema.BlogTag.Name, schema.BlogTag.Slug, schema.BlogTag.Description, schema.BlogTag.Color,
		schema.BlogTag.ID,
	)

	commandTag, err := repository.db.Exec(context, query,
		tag.ID, tag.Name, tag.Slug, tag.Description, tag.Color)
	if err != nil {
		return dberr.Wrap(err, "Tag", "id", fmt.Sprint(tag.ID))
	}
	if commandTag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Tag", "id", fmt.Sprint(tag.ID))
	}
	return nil
}

/*
Delete removes the tag inside a transaction: junction rows first, then the
tag row itself, so no post is left referencing a missing tag.
*/
func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "Tag", "id", fmt.Sprint(id))
	}
	defer func() { _ = transaction.Rollback(context) }()

	detach := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.BlogPostTag.Table, schema.BlogPostTag.TagID)
	if _, err := transaction.Exec(context, detach, id); err != nil {
		return dberr.Wrap(err, "Tag", "id", fmt.Sprint(id))
	}

	remove := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.BlogTag.Table, schema.BlogTag.ID)
	commandTag, err := transaction.Exec(context, remove, id)
	if err != nil {
		return dberr.Wrap(err, "Tag", "id", fmt.Sprint(id))
	}
	if commandTag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Tag", "id", fmt.Sprint(id))
	}

	return transaction.Commit(context)
}

func (repository *PostgresRepository) NameExists(context context.Context, name string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`,
		schema.BlogTag.Table, schema.BlogTag.Name)

	exists := false
	if err := repository.db.QueryRow(context, query, name).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "Tag", "name", name)
	}
	return exists, nil
}

func (repository *PostgresRepository) Count(context context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.BlogTag.Table)

	count := 0
	if err := repository.db.QueryRow(context, query).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "Tag", "count", "all")
	}
	return count, nil
}
