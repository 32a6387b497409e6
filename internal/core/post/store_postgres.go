/*
Package post provides the PostgreSQL implementation for the content engine's data access.

It leans on a few Postgres features to keep reads to a single round-trip:
  - JSON Aggregation: Tags are folded into a JSON array per row, avoiding N+1 queries.
  - Window Functions: COUNT(*) OVER() returns totals without a second COUNT query.
  - ACID Transactions: Post rows, tag junction rows and comment cascades move together.
*/
package post

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkpress/inkpress/internal/platform/database/schema"
	"github.com/inkpress/inkpress/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed post store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// baseSelect is the shared projection: post columns, the author username,
// and the aggregated tag array. The alias contract is p = post, u = account.
func baseSelect(extra string) string {
	return fmt.Sprintf(`
		SELECT
			p.%s, p.%s, p.%s, p.%s, p.%s, p.%s, p.%s, p.%s,
			p.%s, p.%s, p.%s, p.%s, u.%s, p.%s, p.%s,
			COALESCE((
				SELECT json_agg(json_build_object('id', t.%s, 'name', t.%s, 'slug', t.%s, 'color', t.%s))
				FROM %s t
				JOIN %s pt ON t.%s = pt.%s
				WHERE pt.%s = p.%s
			), '[]') AS tags%s
		FROM %s p
		JOIN %s u ON u.%s = p.%s
	`,
		schema.BlogPost.ID, schema.BlogPost.Title, schema.BlogPost.Slug, schema.BlogPost.Excerpt,
		schema.BlogPost.Content, schema.BlogPost.Status, schema.BlogPost.PublishedAt, schema.BlogPost.ViewCount,
		schema.BlogPost.IsFeatured, schema.BlogPost.AllowComments, schema.BlogPost.FeaturedImageURL,
		schema.BlogPost.AuthorID, schema.UsersAccount.Username, schema.BlogPost.CreatedAt, schema.BlogPost.UpdatedAt,
		schema.BlogTag.ID, schema.BlogTag.Name, schema.BlogTag.Slug, schema.BlogTag.Color,
		schema.BlogTag.Table,
		schema.BlogPostTag.Table, schema.BlogTag.ID, schema.BlogPostTag.TagID,
		schema.BlogPostTag.PostID, schema.BlogPost.ID,
		extra,
		schema.BlogPost.Table,
		schema.UsersAccount.Table, schema.UsersAccount.ID, schema.BlogPost.AuthorID,
	)
}

// scanPost scans one row of the base projection (without the total column).
func scanPost(rows pgx.Rows) (*Post, error) {
	post := &Post{}
	var tagsJSON []byte
	if err := rows.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Excerpt,
		&post.Content, &post.Status, &post.PublishedAt, &post.ViewCount,
		&post.IsFeatured, &post.AllowComments, &post.FeaturedImageURL,
		&post.AuthorID, &post.AuthorUsername, &post.CreatedAt, &post.UpdatedAt,
		&tagsJSON,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tagsJSON, &post.Tags); err != nil {
		return nil, err
	}
	return post, nil
}

func (repository *PostgresRepository) findOne(context context.Context, condition, field, value string, arg any) (*Post, error) {
	query := baseSelect("") + " WHERE " + condition

	rows, err := repository.db.Query(context, query, arg)
	if err != nil {
		return nil, dberr.Wrap(err, "Post", field, value)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, dberr.Wrap(pgx.ErrNoRows, "Post", field, value)
	}
	post, err := scanPost(rows)
	if err != nil {
		return nil, dberr.Wrap(err, "Post", field, value)
	}
	return post, nil
}

func (repository *PostgresRepository) FindByID(context context.Context, id int64) (*Post, error) {
	return repository.findOne(context,
		fmt.Sprintf("p.%s = $1", schema.BlogPost.ID), "id", fmt.Sprint(id), id)
}

func (repository *PostgresRepository) FindBySlug(context context.Context, slug string) (*Post, error) {
	return repository.findOne(context,
		fmt.Sprintf("p.%s = $1", schema.BlogPost.Slug), "slug", slug, slug)
}

/*
List returns a filtered, paginated slice of posts and the total match count.

Description: The WHERE clause is assembled dynamically so that an absent
filter contributes nothing. COUNT(*) OVER() supplies the total without a
separate query. Sorting is restricted to a whitelist of columns.
*/
func (repository *PostgresRepository) List(context context.Context, filter Filter, limit, offset int) ([]*Post, int, error) {
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(baseSelect(", COUNT(*) OVER() AS total_count"))
	queryBuilder.WriteString(" WHERE TRUE")

	// Free-text match against title, excerpt, and content.
	if filter.Query != "" {
		queryBuilder.WriteString(fmt.Sprintf(
			" AND (p.%s ILIKE '%%' || $%d || '%%' OR p.%s ILIKE '%%' || $%d || '%%' OR p.%s ILIKE '%%' || $%d || '%%')",
			schema.BlogPost.Title, argID, schema.BlogPost.Excerpt, argID, schema.BlogPost.Content, argID))
		args = append(args, filter.Query)
		argID++
	}

	// Tag filtering: posts carrying at least one of the given names.
	if len(filter.Tags) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(
			` AND EXISTS (SELECT 1 FROM %s pt JOIN %s t ON t.%s = pt.%s WHERE pt.%s = p.%s AND t.%s = ANY($%d))`,
			schema.BlogPostTag.Table, schema.BlogTag.Table,
			schema.BlogTag.ID, schema.BlogPostTag.TagID,
			schema.BlogPostTag.PostID, schema.BlogPost.ID,
			schema.BlogTag.Name, argID))
		args = append(args, filter.Tags)
		argID++
	}

	if filter.AuthorUsername != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND u.%s = $%d", schema.UsersAccount.Username, argID))
		args = append(args, filter.AuthorUsername)
		argID++
	}

	if filter.Status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND p.%s = $%d", schema.BlogPost.Status, argID))
		args = append(args, string(filter.Status))
		argID++
	}

	if filter.FeaturedOnly {
		queryBuilder.WriteString(fmt.Sprintf(" AND p.%s = TRUE", schema.BlogPost.IsFeatured))
	}

	// Sorting against a column whitelist; unknown fields fall back to creation time.
	sortColumn := fmt.Sprintf("p.%s", schema.BlogPost.CreatedAt)
	switch filter.SortBy {
	case "published_at":
		sortColumn = fmt.Sprintf("p.%s", schema.BlogPost.PublishedAt)
	case "view_count":
		sortColumn = fmt.Sprintf("p.%s", schema.BlogPost.ViewCount)
	case "title":
		sortColumn = fmt.Sprintf("p.%s", schema.BlogPost.Title)
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortDirection, "asc") {
		direction = "ASC"
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s NULLS LAST", sortColumn, direction))

	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := repository.db.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Post", "list", "filter")
	}
	defer rows.Close()

	posts := make([]*Post, 0, limit)
	total := 0
	for rows.Next() {
		post := &Post{}
		var tagsJSON []byte
		if err := rows.Scan(
			&post.ID, &post.Title, &post.Slug, &post.Excerpt,
			&post.Content, &post.Status, &post.PublishedAt, &post.ViewCount,
			&post.IsFeatured, &post.AllowComments, &post.FeaturedImageURL,
			&post.AuthorID, &post.AuthorUsername, &post.CreatedAt, &post.UpdatedAt,
			&tagsJSON, &total,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "Post", "list", "filter")
		}
		if err := json.Unmarshal(tagsJSON, &post.Tags); err != nil {
			return nil, 0, dberr.Wrap(err, "Post", "list", "filter")
		}
		posts = append(posts, post)
	}
	return posts, total, rows.Err()
}

// listSimple runs the base projection with a fixed condition and order.
func (repository *PostgresRepository) listSimple(context context.Context, clause string, args ...any) ([]*Post, error) {
	query := baseSelect("") + " " + clause

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "Post", "list", "simple")
	}
	defer rows.Close()

	posts := make([]*Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "Post", "list", "simple")
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (repository *PostgresRepository) Featured(context context.Context, limit int) ([]*Post, error) {
	clause := fmt.Sprintf("WHERE p.%s = 'PUBLISHED' AND p.%s = TRUE ORDER BY p.%s DESC NULLS LAST LIMIT $1",
		schema.BlogPost.Status, schema.BlogPost.IsFeatured, schema.BlogPost.PublishedAt)
	return repository.listSimple(context, clause, limit)
}

func (repository *PostgresRepository) Recent(context context.Context, limit int) ([]*Post, error) {
	clause := fmt.Sprintf("WHERE p.%s = 'PUBLISHED' ORDER BY p.%s DESC NULLS LAST LIMIT $1",
		schema.BlogPost.Status, schema.BlogPost.PublishedAt)
	return repository.listSimple(context, clause, limit)
}

func (repository *PostgresRepository) Popular(context context.Context, limit int) ([]*Post, error) {
	clause := fmt.Sprintf("WHERE p.%s = 'PUBLISHED' ORDER BY p.%s DESC LIMIT $1",
		schema.BlogPost.Status, schema.BlogPost.ViewCount)
	return repository.listSimple(context, clause, limit)
}

/*
Related returns published posts ranked by how many tags they share with
the given post.
*/
func (repository *PostgresRepository) Related(context context.Context, postID int64, limit int) ([]*Post, error) {
	clause := fmt.Sprintf(`
		WHERE p.%s = 'PUBLISHED' AND p.%s <> $1 AND EXISTS (
			SELECT 1 FROM %s shared
			WHERE shared.%s = p.%s AND shared.%s IN (
				SELECT own.%s FROM %s own WHERE own.%s = $1
			)
		)
		ORDER BY (
			SELECT COUNT(*) FROM %s shared
			WHERE shared.%s = p.%s AND shared.%s IN (
				SELECT own.%s FROM %s own WHERE own.%s = $1
			)
		) DESC, p.%s DESC NULLS LAST
		LIMIT $2
	`,
		schema.BlogPost.Status, schema.BlogPost.ID,
		schema.BlogPostTag.Table,
		schema.BlogPostTag.PostID, schema.BlogPost.ID, schema.BlogPostTag.TagID,
		schema.BlogPostTag.TagID, schema.BlogPostTag.Table, schema.BlogPostTag.PostID,
		schema.BlogPostTag.Table,
		schema.BlogPostTag.PostID, schema.BlogPost.ID, schema.BlogPostTag.TagID,
		schema.BlogPostTag.TagID, schema.BlogPostTag.Table, schema.BlogPostTag.PostID,
		schema.BlogPost.PublishedAt,
	)
	return repository.listSimple(context, clause, postID, limit)
}

func (repository *PostgresRepository) FindDue(context context.Context, now time.Time) ([]*Post, error) {
	clause := fmt.Sprintf("WHERE p.%s = 'SCHEDULED' AND p.%s <= $1 ORDER BY p.%s ASC",
		schema.BlogPost.Status, schema.BlogPost.PublishedAt, schema.BlogPost.PublishedAt)
	return repository.listSimple(context, clause, now)
}

/*
Create persists the post and its tag junction rows in one transaction.
*/
func (repository *PostgresRepository) Create(context context.Context, post *Post, tagIDs []int64) error {
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "Post", "title", post.Title)
	}
	defer func() { _ = transaction.Rollback(context) }()

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s, %s, %s, %s
	`,
		schema.BlogPost.Table,
		schema.BlogPost.Title, schema.BlogPost.Slug, schema.BlogPost.Excerpt, schema.BlogPost.Content,
		schema.BlogPost.Status, schema.BlogPost.PublishedAt, schema.BlogPost.IsFeatured,
		schema.BlogPost.AllowComments, schema.BlogPost.FeaturedImageURL, schema.BlogPost.AuthorID,
		schema.BlogPost.ID, schema.BlogPost.ViewCount, schema.BlogPost.CreatedAt, schema.BlogPost.UpdatedAt,
	)

	err = transaction.QueryRow(context, insert,
		post.Title, post.Slug, post.Excerpt, post.Content,
		string(post.Status), post.PublishedAt, post.IsFeatured,
		post.AllowComments, post.FeaturedImageURL, post.AuthorID,
	).Scan(&post.ID, &post.ViewCount, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "Post", "title", post.Title)
	}

	if err := insertTagLinks(context, transaction, post.ID, tagIDs); err != nil {
		return err
	}

	return transaction.Commit(context)
}

/*
Update rewrites the post row and fully replaces its tag junction rows.
*/
func (repository *PostgresRepository) Update(context context.Context, post *Post, tagIDs []int64) error {
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(post.ID))
	}
	defer func() { _ = transaction.Rollback(context) }()

	update := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7,
		    %s = $8, %s = $9, %s = $10, %s = NOW()
		WHERE %s = $1
	`,
		schema.BlogPost.Table,
		schema.BlogPost.Title, schema.BlogPost.Slug, schema.BlogPost.Excerpt, schema.BlogPost.Content,
		schema.BlogPost.Status, schema.BlogPost.PublishedAt, schema.BlogPost.IsFeatured,
		schema.BlogPost.AllowComments, schema.BlogPost.FeaturedImageURL, schema.BlogPost.UpdatedAt,
		schema.BlogPost.ID,
	)

	commandTag, err := transaction.Exec(context, update,
		post.ID, post.Title, post.Slug, post.Excerpt, post.Content,
		string(post.Status), post.PublishedAt, post.IsFeatured,
		post.AllowComments, post.FeaturedImageURL,
	)
	if err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(post.ID))
	}
	if commandTag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Post", "id", fmt.Sprint(post.ID))
	}

	// Old associations are cleared and the new set written in full.
	clearLinks := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.BlogPostTag.Table, schema.BlogPostTag.PostID)
	if _, err := transaction.Exec(context, clearLinks, post.ID); err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(post.ID))
	}

	if err := insertTagLinks(context, transaction, post.ID, tagIDs); err != nil {
		return err
	}

	return transaction.Commit(context)
}

func (repository *PostgresRepository) UpdateStatus(context context.Context, id int64, status Status, publishedAt *time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = NOW() WHERE %s = $1`,
		schema.BlogPost.Table,
		schema.BlogPost.Status, schema.BlogPost.PublishedAt, schema.BlogPost.UpdatedAt,
		schema.BlogPost.ID,
	)

	commandTag, err := repository.db.Exec(context, query, id, string(status), publishedAt)
	if err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(id))
	}
	if commandTag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Post", "id", fmt.Sprint(id))
	}
	return nil
}

func (repository *PostgresRepository) ToggleFeatured(context context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = NOT %s, %s = NOW() WHERE %s = $1 RETURNING %s`,
		schema.BlogPost.Table,
		schema.BlogPost.IsFeatured, schema.BlogPost.IsFeatured, schema.BlogPost.UpdatedAt,
		schema.BlogPost.ID, schema.BlogPost.IsFeatured,
	)

	featured := false
	if err := repository.db.QueryRow(context, query, id).Scan(&featured); err != nil {
		return false, dberr.Wrap(err, "Post", "id", fmt.Sprint(id))
	}
	return featured, nil
}

// IncrementViewCount is a single atomic UPDATE; concurrent views never
// lose an increment.
func (repository *PostgresRepository) IncrementViewCount(context context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + 1 WHERE %s = $1`,
		schema.BlogPost.Table,
		schema.BlogPost.ViewCount, schema.BlogPost.ViewCount, schema.BlogPost.ID,
	)

	commandTag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(id))
	}
	if commandTag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Post", "id", fmt.Sprint(id))
	}
	return nil
}

/*
Delete removes the post, its comments, and its tag links in one
transaction so no orphaned rows survive.
*/
func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(id))
	}
	defer func() { _ = transaction.Rollback(context) }()

	comments := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.BlogComment.Table, schema.BlogComment.PostID)
	if _, err := transaction.Exec(context, comments, id); err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(id))
	}

	links := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.BlogPostTag.Table, schema.BlogPostTag.PostID)
	if _, err := transaction.Exec(context, links, id); err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(id))
	}

	remove := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.BlogPost.Table, schema.BlogPost.ID)
	commandTag, err := transaction.Exec(context, remove, id)
	if err != nil {
		return dberr.Wrap(err, "Post", "id", fmt.Sprint(id))
	}
	if commandTag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Post", "id", fmt.Sprint(id))
	}

	return transaction.Commit(context)
}

func (repository *PostgresRepository) SlugExists(context context.Context, slug string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`,
		schema.BlogPost.Table, schema.BlogPost.Slug)

	exists := false
	if err := repository.db.QueryRow(context, query, slug).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "Post", "slug", slug)
	}
	return exists, nil
}

func (repository *PostgresRepository) TitleExists(context context.Context, title string, excludeID int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1 AND %s <> $2)`,
		schema.BlogPost.Table, schema.BlogPost.Title, schema.BlogPost.ID)

	exists := false
	if err := repository.db.QueryRow(context, query, title, excludeID).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "Post", "title", title)
	}
	return exists, nil
}

func (repository *PostgresRepository) CountByStatus(context context.Context) (map[Status]int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s GROUP BY %s`,
		schema.BlogPost.Status, schema.BlogPost.Table, schema.BlogPost.Status)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "Post", "count", "status")
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		count := 0
		if err := rows.Scan(&status, &count); err != nil {
			return nil, dberr.Wrap(err, "Post", "count", "status")
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (repository *PostgresRepository) TotalViews(context context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s), 0) FROM %s`,
		schema.BlogPost.ViewCount, schema.BlogPost.Table)

	var total int64
	if err := repository.db.QueryRow(context, query).Scan(&total); err != nil {
		return 0, dberr.Wrap(err, "Post", "count", "views")
	}
	return total, nil
}

// insertTagLinks writes the junction rows within the caller's transaction.
func insertTagLinks(context context.Context, transaction pgx.Tx, postID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		link := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			schema.BlogPostTag.Table, schema.BlogPostTag.PostID, schema.BlogPostTag.TagID)
		if _, err := transaction.Exec(context, link, postID, tagID); err != nil {
			return dberr.Wrap(err, "Post", "id", fmt.Sprint(postID))
		}
	}
	return nil
}
