package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*domain.User
	usersByName   map[string]string // map[username]userID
	posts         map[string]*domain.Post
	postOrder     []string            // id постов, новые в начале
	postsByAuthor map[string][]string // map[authorID][]postID, новые в начале

	// now подменяется в тестах, чтобы зафиксировать границу дня.
	now func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:         make(map[string]*domain.User),
		usersByName:   make(map[string]string),
		posts:         make(map[string]*domain.Post),
		postsByAuthor: make(map[string][]string),
		now:           time.Now,
	}
}

// === User Methods ===

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, domain.ErrNotFound)
	}
	return copyUser(user), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Поиск строго чувствителен к регистру.
	id, ok := s.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("user with username %s: %w", username, domain.ErrNotFound)
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) SeedUsers(ctx context.Context, users []*domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if _, ok := s.usersByName[u.Username]; ok {
			return fmt.Errorf("username %s already taken: %w", u.Username, domain.ErrInvalidInput)
		}
		s.users[u.ID] = copyUser(u)
		s.usersByName[u.Username] = u.ID
	}
	return nil
}

func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	follower, ok := s.users[followerID]
	if !ok {
		return fmt.Errorf("follower with id %s: %w", followerID, domain.ErrNotFound)
	}
	followee, ok := s.users[followeeID]
	if !ok {
		return fmt.Errorf("followee with id %s: %w", followeeID, domain.ErrNotFound)
	}
	if followerID == followeeID {
		return fmt.Errorf("you cannot follow yourself: %w", domain.ErrInvalidOperation)
	}

	// Уже подписан - идемпотентный no-op.
	if follower.IsFollowing(followeeID) {
		return nil
	}

	// Обе стороны ребра обновляются под одним локом.
	follower.Following = append(follower.Following, followeeID)
	followee.Followers = append(followee.Followers, followerID)
	return nil
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	follower, ok := s.users[followerID]
	if !ok {
		return fmt.Errorf("follower with id %s: %w", followerID, domain.ErrNotFound)
	}
	followee, ok := s.users[followeeID]
	if !ok {
		return fmt.Errorf("followee with id %s: %w", followeeID, domain.ErrNotFound)
	}

	// Не подписан - идемпотентный no-op.
	if !follower.IsFollowing(followeeID) {
		return nil
	}

	follower.Following = removeID(follower.Following, followeeID)
	followee.Followers = removeID(followee.Followers, followerID)
	return nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, args storage.CreatePostArgs) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Автор должен существовать.
	author, ok := s.users[args.AuthorID]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", args.AuthorID, domain.ErrNotFound)
	}

	// 2. Дневной лимит: считаем посты автора с местной полуночи.
	now := s.now()
	if s.countPostsToday(args.AuthorID, now) >= domain.DailyPostLimit {
		return nil, fmt.Errorf("you have reached the daily limit of %d posts: %w",
			domain.DailyPostLimit, domain.ErrRateLimited)
	}

	// 3. Длина содержимого в символах, не в байтах.
	if utf8.RuneCountInString(args.Content) > domain.MaxContentLength {
		return nil, fmt.Errorf("post cannot exceed %d characters: %w",
			domain.MaxContentLength, domain.ErrInvalidInput)
	}

	// 4. Проверка ссылки на оригинал.
	if !args.Type.Valid() {
		return nil, fmt.Errorf("unknown post type %q: %w", args.Type, domain.ErrInvalidInput)
	}
	if args.Type == domain.PostTypeRegular && args.OriginalPostID != nil {
		return nil, fmt.Errorf("regular post cannot reference an original post: %w", domain.ErrInvalidInput)
	}
	if args.Type.HasLineage() {
		if args.OriginalPostID == nil {
			return nil, fmt.Errorf("%s: %w", lineageRequiredMsg(args.Type), domain.ErrInvalidInput)
		}
		if _, ok := s.posts[*args.OriginalPostID]; !ok {
			return nil, fmt.Errorf("%s: %w", lineageNotFoundMsg(args.Type), domain.ErrNotFound)
		}
	}

	content := args.Content
	if args.Type == domain.PostTypeRepost {
		// У репоста содержимое всегда пустое.
		content = ""
	}

	post := &domain.Post{
		ID:             uuid.NewString(),
		Content:        content,
		AuthorID:       args.AuthorID,
		CreatedAt:      now,
		Type:           args.Type,
		OriginalPostID: args.OriginalPostID,
	}

	s.posts[post.ID] = post
	s.postOrder = append([]string{post.ID}, s.postOrder...)
	s.postsByAuthor[post.AuthorID] = append([]string{post.ID}, s.postsByAuthor[post.AuthorID]...)
	author.PostCount++

	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return post, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.ListFilter) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authorSet := make(map[string]struct{}, len(filter.AuthorIDs))
	for _, id := range filter.AuthorIDs {
		authorSet[id] = struct{}{}
	}

	// Неизвестный username дает пустую выдачу, не ошибку.
	var byUsername string
	if filter.Username != "" {
		id, ok := s.usersByName[filter.Username]
		if !ok {
			return []*domain.Post{}, nil
		}
		byUsername = id
	}

	result := make([]*domain.Post, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		p := s.posts[id]
		if len(authorSet) > 0 {
			if _, ok := authorSet[p.AuthorID]; !ok {
				continue
			}
		}
		if byUsername != "" && p.AuthorID != byUsername {
			continue
		}
		result = append(result, p)
	}

	sortNewestFirst(result)
	return result, nil
}

func (s *Store) SearchPosts(ctx context.Context, query string) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Пустой или пробельный запрос - пустая выдача, не "все посты".
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return []*domain.Post{}, nil
	}

	result := make([]*domain.Post, 0)
	for _, id := range s.postOrder {
		p := s.posts[id]
		// Репосты не участвуют в поиске: их содержимое пустое.
		if p.Type == domain.PostTypeRepost {
			continue
		}
		// Ищем только по собственному содержимому, не по оригиналу.
		if strings.Contains(strings.ToLower(p.Content), normalized) {
			result = append(result, p)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			results[id] = copyUser(u)
		}
	}
	return results, nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*domain.Post, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			results[id] = p
		}
	}
	return results, nil
}

// === Helpers ===

// countPostsToday считает посты автора с начала текущего календарного дня.
// Индекс postsByAuthor хранит новые в начале, так что можно остановиться
// на первом посте старше полуночи.
func (s *Store) countPostsToday(authorID string, now time.Time) int {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count := 0
	for _, id := range s.postsByAuthor[authorID] {
		if s.posts[id].CreatedAt.Before(startOfDay) {
			break
		}
		count++
	}
	return count
}

func sortNewestFirst(posts []*domain.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// copyUser отдает копию, чтобы читатели не видели последующих мутаций графа.
func copyUser(u *domain.User) *domain.User {
	c := *u
	c.Followers = append([]string(nil), u.Followers...)
	c.Following = append([]string(nil), u.Following...)
	return &c
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func lineageRequiredMsg(t domain.PostType) string {
	if t == domain.PostTypeReply {
		return "reply target post id is required for replies"
	}
	return "original post id is required for reposts and quote posts"
}

func lineageNotFoundMsg(t domain.PostType) string {
	if t == domain.PostTypeReply {
		return "reply target post not found"
	}
	return "original post not found"
}
