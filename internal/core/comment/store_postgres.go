package comment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkpress/inkpress/internal/platform/database/schema"
	"github.com/inkpress/inkpress/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
//
// Subtree deletes use a recursive CTE so a parent and every transitive
// reply go in one statement, inside one transaction.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed comment store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// commentSelect is the standard projection: comment columns plus the
// author's username joined from the users schema.
func commentSelect() string {
	return fmt.Sprintf(`SELECT c.%s, c.%s, c.%s, c.%s, c.%s, u.%s, c.%s, c.%s, c.%s
		FROM %s c
		JOIN %s u ON u.%s = c.%s`,
		schema.BlogComment.ID, schema.BlogComment.Content, schema.BlogComment.Status,
		schema.BlogComment.PostID, schema.BlogComment.AuthorID, schema.UsersAccount.Username,
		schema.BlogComment.ParentID, schema.BlogComment.CreatedAt, schema.BlogComment.UpdatedAt,
		schema.BlogComment.Table,
		schema.UsersAccount.Table, schema.UsersAccount.ID, schema.BlogComment.AuthorID)
}

func scanComment(row interface{ Scan(...any) error }) (*Comment, error) {
	comment := &Comment{}
	err := row.Scan(&comment.ID, &comment.Content, &comment.Status,
		&comment.PostID, &comment.AuthorID, &comment.AuthorUsername,
		&comment.ParentID, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (repository *PostgresRepository) FindByID(context context.Context, id int64) (*Comment, error) {
	query := commentSelect() + fmt.Sprintf(` WHERE c.%s = $1`, schema.BlogComment.ID)

	comment, err := scanComment(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Comment", "id", fmt.Sprint(id))
	}
	return comment, nil
}

func (repository *PostgresRepository) TopLevel(context context.Context, postID int64, status Status, limit, offset int) ([]*Comment, int, error) {
	query := commentSelect() + fmt.Sprintf(`
		WHERE c.%s = $1 AND c.%s IS NULL AND c.%s = $2
		ORDER BY c.%s DESC
		LIMIT $3 OFFSET $4`,
		schema.BlogComment.PostID, schema.BlogComment.ParentID, schema.BlogComment.Status,
		schema.BlogComment.CreatedAt)

	comments, err := repository.queryMany(context, query, postID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1 AND %s IS NULL AND %s = $2`,
		schema.BlogComment.Table, schema.BlogComment.PostID,
		schema.BlogComment.ParentID, schema.BlogComment.Status)

	var total int
	if err := repository.db.QueryRow(context, countQuery, postID, status).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Comment", "post", fmt.Sprint(postID))
	}
	return comments, total, nil
}

func (repository *PostgresRepository) Replies(context context.Context, parentID int64, status Status) ([]*Comment, error) {
	query := commentSelect() + fmt.Sprintf(`
		WHERE c.%s = $1 AND c.%s = $2
		ORDER BY c.%s ASC`,
		schema.BlogComment.ParentID, schema.BlogComment.Status, schema.BlogComment.CreatedAt)

	return repository.queryMany(context, query, parentID, status)
}

func (repository *PostgresRepository) ByPost(context context.Context, postID int64, status Status) ([]*Comment, error) {
	query := commentSelect() + fmt.Sprintf(`
		WHERE c.%s = $1 AND c.%s = $2
		ORDER BY c.%s ASC`,
		schema.BlogComment.PostID, schema.BlogComment.Status, schema.BlogComment.CreatedAt)

	return repository.queryMany(context, query, postID, status)
}

func (repository *PostgresRepository) Pending(context context.Context, limit, offset int) ([]*Comment, int, error) {
	// Oldest first: the longest waiting comment is triaged first.
	query := commentSelect() + fmt.Sprintf(`
		WHERE c.%s = $1
		ORDER BY c.%s ASC
		LIMIT $2 OFFSET $3`,
		schema.BlogComment.Status, schema.BlogComment.CreatedAt)

	comments, err := repository.queryMany(context, query, StatusPending, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.BlogComment.Table, schema.BlogComment.Status)

	var total int
	if err := repository.db.QueryRow(context, countQuery, StatusPending).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Comment", "status", string(StatusPending))
	}
	return comments, total, nil
}

func (repository *PostgresRepository) ByAuthor(context context.Context, username string, limit, offset int) ([]*Comment, int, error) {
	query := commentSelect() + fmt.Sprintf(`
		WHERE u.%s = $1
		ORDER BY c.%s DESC
		LIMIT $2 OFFSET $3`,
		schema.UsersAccount.Username, schema.BlogComment.CreatedAt)

	comments, err := repository.queryMany(context, query, username, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s c JOIN %s u ON u.%s = c.%s WHERE u.%s = $1`,
		schema.BlogComment.Table, schema.UsersAccount.Table,
		schema.UsersAccount.ID, schema.BlogComment.AuthorID, schema.UsersAccount.Username)

	var total int
	if err := repository.db.QueryRow(context, countQuery, username).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Comment", "author", username)
	}
	return comments, total, nil
}

func (repository *PostgresRepository) Create(context context.Context, comment *Comment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s, %s, %s`,
		schema.BlogComment.Table,
		schema.BlogComment.Content, schema.BlogComment.Status, schema.BlogComment.PostID,
		schema.BlogComment.AuthorID, schema.BlogComment.ParentID,
		schema.BlogComment.ID, schema.BlogComment.CreatedAt, schema.BlogComment.UpdatedAt)

	err := repository.db.QueryRow(context, query,
		comment.Content, comment.Status, comment.PostID, comment.AuthorID, comment.ParentID,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "Comment", "post", fmt.Sprint(comment.PostID))
	}
	return nil
}

func (repository *PostgresRepository) Update(context context.Context, comment *Comment) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = $2, %s = NOW()
		WHERE %s = $3
		RETURNING %s`,
		schema.BlogComment.Table,
		schema.BlogComment.Content, schema.BlogComment.Status, schema.BlogComment.UpdatedAt,
		schema.BlogComment.ID, schema.BlogComment.UpdatedAt)

	err := repository.db.QueryRow(context, query,
		comment.Content, comment.Status, comment.ID,
	).Scan(&comment.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "Comment", "id", fmt.Sprint(comment.ID))
	}
	return nil
}

func (repository *PostgresRepository) UpdateStatus(context context.Context, id int64, status Status) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		schema.BlogComment.Table, schema.BlogComment.Status,
		schema.BlogComment.UpdatedAt, schema.BlogComment.ID)

	result, err := repository.db.Exec(context, query, status, id)
	if err != nil {
		return dberr.Wrap(err, "Comment", "id", fmt.Sprint(id))
	}
	if result.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Comment", "id", fmt.Sprint(id))
	}
	return nil
}

func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	// The recursive CTE collects the whole reply subtree rooted at id.
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT %s FROM %s WHERE %s = $1
			UNION ALL
			SELECT c.%s FROM %s c
			JOIN subtree s ON c.%s = s.%s
		)
		DELETE FROM %s WHERE %s IN (SELECT %s FROM subtree)`,
		schema.BlogComment.ID, schema.BlogComment.Table, schema.BlogComment.ID,
		schema.BlogComment.ID, schema.BlogComment.Table,
		schema.BlogComment.ParentID, schema.BlogComment.ID,
		schema.BlogComment.Table, schema.BlogComment.ID, schema.BlogComment.ID)

	result, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "Comment", "id", fmt.Sprint(id))
	}
	if result.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Comment", "id", fmt.Sprint(id))
	}
	return nil
}

func (repository *PostgresRepository) CountByStatus(context context.Context) (map[Status]int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s GROUP BY %s`,
		schema.BlogComment.Status, schema.BlogComment.Table, schema.BlogComment.Status)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "Comment", "count", "status")
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, dberr.Wrap(err, "Comment", "count", "status")
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (repository *PostgresRepository) CountByPost(context context.Context, postID int64) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.BlogComment.Table, schema.BlogComment.PostID)

	var count int
	if err := repository.db.QueryRow(context, query, postID).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "Comment", "post", fmt.Sprint(postID))
	}
	return count, nil
}

// queryMany runs a multi-row comment query and scans the results.
func (repository *PostgresRepository) queryMany(context context.Context, query string, args ...any) ([]*Comment, error) {
	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "Comment", "query", "list")
	}
	defer rows.Close()

	comments := make([]*Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "Comment", "query", "list")
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}
