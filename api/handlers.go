package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/UkralStul/posterr-feed-service/internal/dataloader"
	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/feed"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Handler - это корневая структура HTTP-слоя.
// Она содержит все зависимости, которые нужны для выполнения запросов.
type Handler struct {
	Storage  storage.Storage
	Feed     *feed.Composer
	Observer *PostObserver
}

// Routes собирает маршруты операционного контракта ядра.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/posts", h.createPost)
	r.Get("/posts/{id}", h.getPost)
	r.Get("/feed", h.getFeed)
	r.Get("/feed/stream", h.streamFeed)
	r.Get("/users/{username}", h.getUser)
	r.Post("/users/{id}/follow", h.follow)
	r.Delete("/users/{id}/follow", h.unfollow)

	return r
}

// === Mutations ===

type createPostRequest struct {
	Content        string          `json:"content"`
	AuthorID       string          `json:"authorId"`
	Type           domain.PostType `json:"type"`
	OriginalPostID *string         `json:"originalPostId,omitempty"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("malformed request body: %w", domain.ErrInvalidInput))
		return
	}

	post, err := h.Storage.CreatePost(r.Context(), storage.CreatePostArgs{
		Content:        req.Content,
		AuthorID:       req.AuthorID,
		Type:           req.Type,
		OriginalPostID: req.OriginalPostID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Уведомляем подписчиков стрима.
	h.Observer.Notify(post)

	hydrated, err := h.hydratePost(r, post)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hydrated)
}

type followRequest struct {
	FollowerID string `json:"followerId"`
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("malformed request body: %w", domain.ErrInvalidInput))
		return
	}

	if err := h.Storage.Follow(r.Context(), req.FollowerID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unfollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("malformed request body: %w", domain.ErrInvalidInput))
		return
	}

	if err := h.Storage.Unfollow(r.Context(), req.FollowerID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Queries ===

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.Storage.GetPostByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	hydrated, err := h.hydratePost(r, post)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hydrated)
}

func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var posts []*domain.Post
	var err error
	switch filter := q.Get("filter"); filter {
	case "", "all":
		posts, err = h.Feed.Global(r.Context())
	case "following":
		posts, err = h.Feed.Following(r.Context(), q.Get("viewerId"))
	case "user":
		posts, err = h.Feed.ByUser(r.Context(), q.Get("username"))
	case "search":
		posts, err = h.Feed.Search(r.Context(), q.Get("q"))
	default:
		err = fmt.Errorf("unknown feed filter %q: %w", filter, domain.ErrInvalidInput)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	hydrated, err := h.hydratePosts(r, posts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hydrated)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Storage.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// === Hydration ===

// hydratePost присоединяет автора и оригинальный пост как проекцию на
// чтении. Возвращается копия: хранимый пост не мутируется.
func (h *Handler) hydratePost(r *http.Request, post *domain.Post) (*domain.Post, error) {
	ctx := r.Context()
	loaders := dataloader.For(ctx)

	hydrated := *post
	author, err := loaders.LoadUser(ctx, post.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post author: %w", err)
	}
	hydrated.Author = author

	if post.OriginalPostID != nil {
		original, err := loaders.LoadPost(ctx, *post.OriginalPostID)
		if err != nil {
			return nil, fmt.Errorf("failed to load original post: %w", err)
		}
		if original != nil {
			originalCopy := *original
			originalAuthor, err := loaders.LoadUser(ctx, original.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("failed to load original post author: %w", err)
			}
			originalCopy.Author = originalAuthor
			hydrated.OriginalPost = &originalCopy
		}
	}

	return &hydrated, nil
}

func (h *Handler) hydratePosts(r *http.Request, posts []*domain.Post) ([]*domain.Post, error) {
	hydrated := make([]*domain.Post, len(posts))
	for i, p := range posts {
		hp, err := h.hydratePost(r, p)
		if err != nil {
			return nil, err
		}
		hydrated[i] = hp
	}
	return hydrated, nil
}

// === Responses ===

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит вид ошибки ядра в HTTP-статус. Текст сообщения
// отдаем как есть: за пользовательские формулировки отвечает клиент.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidOperation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
