package feed

import (
	"context"
	"fmt"

	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
)

// Composer строит представления ленты поверх хранилища. Состояния между
// вызовами нет: каждая выборка отражает текущее содержимое хранилища.
type Composer struct {
	storage storage.Storage
}

// New создает композер лент поверх переданного хранилища.
func New(s storage.Storage) *Composer {
	return &Composer{storage: s}
}

// Global - все посты, новые первыми.
func (c *Composer) Global(ctx context.Context) ([]*domain.Post, error) {
	return c.storage.ListPosts(ctx, storage.ListFilter{})
}

// Following - посты авторов, на которых подписан viewerID.
// Несуществующий viewer - это ошибка, в отличие от пустого фильтра.
func (c *Composer) Following(ctx context.Context, viewerID string) ([]*domain.Post, error) {
	viewer, err := c.storage.GetUserByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("resolve viewer: %w", err)
	}
	if len(viewer.Following) == 0 {
		return []*domain.Post{}, nil
	}
	return c.storage.ListPosts(ctx, storage.ListFilter{AuthorIDs: viewer.Following})
}

// ByUser - посты автора с данным username. Неизвестное имя дает пустую ленту.
func (c *Composer) ByUser(ctx context.Context, username string) ([]*domain.Post, error) {
	return c.storage.ListPosts(ctx, storage.ListFilter{Username: username})
}

// Search - посты с подстрокой query в содержимом, без репостов.
func (c *Composer) Search(ctx context.Context, query string) ([]*domain.Post, error) {
	return c.storage.SearchPosts(ctx, query)
}
