package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения: батч-загрузка авторов
// и оригинальных постов для гидрации ленты.
type Loaders struct {
	UserByID *dataloader.Loader
	PostByID *dataloader.Loader
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userBatchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
			ids := keyStrings(keys)

			// Один запрос к хранилищу на весь батч.
			usersMap, err := store.GetUsersByIDs(ctx, ids)
			if err != nil {
				return errorResults(keys, err)
			}

			results := make([]*dataloader.Result, len(ids))
			for i, id := range ids {
				results[i] = &dataloader.Result{Data: usersMap[id]}
			}
			return results
		}

		postBatchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
			ids := keyStrings(keys)

			postsMap, err := store.GetPostsByIDs(ctx, ids)
			if err != nil {
				return errorResults(keys, err)
			}

			results := make([]*dataloader.Result, len(ids))
			for i, id := range ids {
				results[i] = &dataloader.Result{Data: postsMap[id]}
			}
			return results
		}

		loaders := Loaders{
			UserByID: dataloader.NewBatchedLoader(userBatchFn, dataloader.WithWait(time.Millisecond*1)),
			PostByID: dataloader.NewBatchedLoader(postBatchFn, dataloader.WithWait(time.Millisecond*1)),
		}

		ctx := context.WithValue(r.Context(), key, &loaders)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

// LoadUser загружает одного пользователя через батч-лоадер.
func (l *Loaders) LoadUser(ctx context.Context, id string) (*domain.User, error) {
	data, err := l.UserByID.Load(ctx, dataloader.StringKey(id))()
	if err != nil {
		return nil, err
	}
	user, _ := data.(*domain.User)
	return user, nil
}

// LoadPost загружает один пост через батч-лоадер.
func (l *Loaders) LoadPost(ctx context.Context, id string) (*domain.Post, error) {
	data, err := l.PostByID.Load(ctx, dataloader.StringKey(id))()
	if err != nil {
		return nil, err
	}
	post, _ := data.(*domain.Post)
	return post, nil
}

func keyStrings(keys dataloader.Keys) []string {
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.String()
	}
	return ids
}

func errorResults(keys dataloader.Keys, err error) []*dataloader.Result {
	// В случае ошибки возвращаем ее для всех ключей.
	results := make([]*dataloader.Result, len(keys))
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}
