package content

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("content not found")

const contentColumns = `id, title, description, file_id, file_type, tokens_required, deeplink, views, is_active, created_by, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Content) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO content (title, description, file_id, file_type, tokens_required, deeplink, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, views, is_active, created_at
	`, c.Title, c.Description, c.FileID, c.FileType, c.TokensRequired, c.Deeplink, c.CreatedBy).
		Scan(&c.ID, &c.Views, &c.IsActive, &c.CreatedAt)
}

func (r *repository) FindByDeeplink(ctx context.Context, deeplink string) (*Content, error) {
	var c Content
	err := r.db.GetContext(ctx, &c, `
		SELECT `+contentColumns+`
		FROM content
		WHERE deeplink = $1
	`, deeplink)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &c, nil
}

func (r *repository) IncrementViews(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE content SET views = views + 1 WHERE id = $1
	`, id)
	return err
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Content, error) {
	if limit <= 0 {
		limit = 50
	}

	items := []Content{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+contentColumns+`
		FROM content
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}

	return items, nil
}
