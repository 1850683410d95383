package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/feed"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
	"github.com/UkralStul/posterr-feed-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestComposer поднимает композер над in-memory хранилищем с двумя пользователями
func newTestComposer(t *testing.T) (*feed.Composer, storage.Storage, *domain.User, *domain.User) {
	store := inmemory.New()
	ctx := context.Background()

	alice := &domain.User{Username: "alice", JoinedAt: time.Now()}
	bob := &domain.User{Username: "bob", JoinedAt: time.Now()}
	require.NoError(t, store.SeedUsers(ctx, []*domain.User{alice, bob}))

	return feed.New(store), store, alice, bob
}

func TestComposer_FollowingScenario(t *testing.T) {
	composer, store, alice, bob := newTestComposer(t)
	ctx := context.Background()

	// Пока alice ни на кого не подписана, ее лента пуста
	posts, err := composer.Following(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, posts)

	post, err := store.CreatePost(ctx, storage.CreatePostArgs{
		Content:  "bob's post",
		AuthorID: bob.ID,
		Type:     domain.PostTypeRegular,
	})
	require.NoError(t, err)

	require.NoError(t, store.Follow(ctx, alice.ID, bob.ID))

	posts, err = composer.Following(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	// После отписки лента снова пуста
	require.NoError(t, store.Unfollow(ctx, alice.ID, bob.ID))
	posts, err = composer.Following(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestComposer_Following_UnknownViewer(t *testing.T) {
	composer, _, _, _ := newTestComposer(t)

	_, err := composer.Following(context.Background(), "non-existent-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComposer_Global(t *testing.T) {
	composer, store, alice, bob := newTestComposer(t)
	ctx := context.Background()

	for _, args := range []storage.CreatePostArgs{
		{Content: "one", AuthorID: alice.ID, Type: domain.PostTypeRegular},
		{Content: "two", AuthorID: bob.ID, Type: domain.PostTypeRegular},
	} {
		_, err := store.CreatePost(ctx, args)
		require.NoError(t, err)
	}

	posts, err := composer.Global(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	// Глобальная лента отдает всех авторов, новые первыми
	assert.Equal(t, "two", posts[0].Content)
	assert.Equal(t, "one", posts[1].Content)
}

func TestComposer_ByUser(t *testing.T) {
	composer, store, alice, bob := newTestComposer(t)
	ctx := context.Background()

	_, err := store.CreatePost(ctx, storage.CreatePostArgs{
		Content: "alice writes", AuthorID: alice.ID, Type: domain.PostTypeRegular,
	})
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, storage.CreatePostArgs{
		Content: "bob writes", AuthorID: bob.ID, Type: domain.PostTypeRegular,
	})
	require.NoError(t, err)

	posts, err := composer.ByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "alice writes", posts[0].Content)

	// Неизвестное имя - пустая лента, не ошибка
	posts, err = composer.ByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestComposer_Search(t *testing.T) {
	composer, store, alice, _ := newTestComposer(t)
	ctx := context.Background()

	_, err := store.CreatePost(ctx, storage.CreatePostArgs{
		Content: "glassmorphism is a cool UI trend", AuthorID: alice.ID, Type: domain.PostTypeRegular,
	})
	require.NoError(t, err)

	posts, err := composer.Search(ctx, "Glassmorphism")
	require.NoError(t, err)
	require.Len(t, posts, 1)

	posts, err = composer.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, posts)
}
