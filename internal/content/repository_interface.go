package content

import "context"

type Repository interface {
	Create(ctx context.Context, c *Content) error
	FindByDeeplink(ctx context.Context, deeplink string) (*Content, error)
	IncrementViews(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]Content, error)
}
