package storage

import (
	"context"

	"github.com/UkralStul/posterr-feed-service/internal/domain"
)

// ListFilter - фильтры для выборки постов. AuthorIDs и Username могут
// сочетаться: результат удовлетворяет обоим (AND). Неизвестный Username
// дает пустой результат, а не ошибку.
type ListFilter struct {
	AuthorIDs []string
	Username  string
}

// CreatePostArgs - аргументы создания поста.
type CreatePostArgs struct {
	Content        string
	AuthorID       string
	Type           domain.PostType
	OriginalPostID *string
}

// Storage определяет контракт для хранилищ: справочник пользователей
// с графом подписок и хранилище постов.
type Storage interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	SeedUsers(ctx context.Context, users []*domain.User) error
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error

	CreatePost(ctx context.Context, args CreatePostArgs) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	ListPosts(ctx context.Context, filter ListFilter) ([]*domain.Post, error)
	SearchPosts(ctx context.Context, query string) ([]*domain.Post, error)

	// Методы для Dataloader'ов
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error)
}
