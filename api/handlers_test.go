package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UkralStul/posterr-feed-service/api"
	"github.com/UkralStul/posterr-feed-service/internal/dataloader"
	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/feed"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
	"github.com/UkralStul/posterr-feed-service/internal/storage/inmemory"
	"github.com/go-chi/chi/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer собирает роутер так же, как main: chi + дата-лоадеры
func newTestServer(t *testing.T) (http.Handler, storage.Storage, *domain.User, *domain.User) {
	store := inmemory.New()
	ctx := context.Background()

	alice := &domain.User{Username: "alice", JoinedAt: time.Now()}
	bob := &domain.User{Username: "bob", JoinedAt: time.Now()}
	require.NoError(t, store.SeedUsers(ctx, []*domain.User{alice, bob}))

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(store, next)
	})

	handler := &api.Handler{
		Storage:  store,
		Feed:     feed.New(store),
		Observer: api.NewPostObserver(),
	}
	router.Mount("/", handler.Routes())

	return router, store, alice, bob
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAPI_CreatePost_Hydrated(t *testing.T) {
	router, _, alice, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/posts", map[string]any{
		"content":  "hello from the api",
		"authorId": alice.ID,
		"type":     "REGULAR",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var post domain.Post
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&post))
	assert.Equal(t, "hello from the api", post.Content)
	// Автор присоединен как проекция на чтении
	require.NotNil(t, post.Author)
	assert.Equal(t, "alice", post.Author.Username)
	assert.Nil(t, post.OriginalPost)
}

func TestAPI_CreatePost_QuoteEmbedsOriginal(t *testing.T) {
	router, store, alice, bob := newTestServer(t)

	original, err := store.CreatePost(context.Background(), storage.CreatePostArgs{
		Content:  "the original",
		AuthorID: bob.ID,
		Type:     domain.PostTypeRegular,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/posts", map[string]any{
		"content":        "quoting this",
		"authorId":       alice.ID,
		"type":           "QUOTE",
		"originalPostId": original.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var post domain.Post
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&post))
	require.NotNil(t, post.OriginalPost)
	assert.Equal(t, "the original", post.OriginalPost.Content)
	require.NotNil(t, post.OriginalPost.Author)
	assert.Equal(t, "bob", post.OriginalPost.Author.Username)
}

func TestAPI_CreatePost_ErrorMapping(t *testing.T) {
	router, _, alice, _ := newTestServer(t)

	// Неизвестный автор
	rec := doJSON(t, router, http.MethodPost, "/posts", map[string]any{
		"content":  "x",
		"authorId": "non-existent-id",
		"type":     "REGULAR",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Репост без ссылки на оригинал
	rec = doJSON(t, router, http.MethodPost, "/posts", map[string]any{
		"authorId": alice.ID,
		"type":     "REPOST",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Дневной лимит
	for i := 0; i < domain.DailyPostLimit; i++ {
		rec = doJSON(t, router, http.MethodPost, "/posts", map[string]any{
			"content":  fmt.Sprintf("post %d", i),
			"authorId": alice.ID,
			"type":     "REGULAR",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/posts", map[string]any{
		"content":  "over the limit",
		"authorId": alice.ID,
		"type":     "REGULAR",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAPI_FollowEndpoints(t *testing.T) {
	router, store, alice, bob := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/users/"+bob.ID+"/follow", map[string]any{
		"followerId": alice.ID,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	gotAlice, err := store.GetUserByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, gotAlice.Following)

	// Подписка на самого себя
	rec = doJSON(t, router, http.MethodPost, "/users/"+alice.ID+"/follow", map[string]any{
		"followerId": alice.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/users/"+bob.ID+"/follow", map[string]any{
		"followerId": alice.ID,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	gotAlice, err = store.GetUserByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, gotAlice.Following)
}

func TestAPI_GetFeed(t *testing.T) {
	router, store, _, bob := newTestServer(t)
	ctx := context.Background()

	_, err := store.CreatePost(ctx, storage.CreatePostArgs{
		Content: "searchable words", AuthorID: bob.ID, Type: domain.PostTypeRegular,
	})
	require.NoError(t, err)

	// Лента пользователя
	rec := doJSON(t, router, http.MethodGet, "/feed?filter=user&username=bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []*domain.Post
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&posts))
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "bob", posts[0].Author.Username)

	// Поиск
	rec = doJSON(t, router, http.MethodGet, "/feed?filter=search&q=searchable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&posts))
	assert.Len(t, posts, 1)

	// Лента подписок с несуществующим viewer'ом
	rec = doJSON(t, router, http.MethodGet, "/feed?filter=following&viewerId=non-existent-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Неизвестный фильтр
	rec = doJSON(t, router, http.MethodGet, "/feed?filter=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetUser(t *testing.T) {
	router, _, _, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/users/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user domain.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, "alice", user.Username)

	rec = doJSON(t, router, http.MethodGet, "/users/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
