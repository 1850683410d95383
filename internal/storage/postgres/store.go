package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
	"github.com/google/uuid"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info), // Включаем логирование для отладки
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.Follow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// === User Methods ===

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with id %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	if err := s.loadFollowEdges(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with username %s: %w", username, domain.ErrNotFound)
		}
		return nil, err
	}
	if err := s.loadFollowEdges(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) SeedUsers(ctx context.Context, users []*domain.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range users {
			if u.ID == "" {
				u.ID = uuid.NewString()
			}
			// Повторный запуск процесса не должен дублировать посев.
			// Если пользователь уже есть, отдаем вызывающему его настоящий id:
			// дальнейшая проводка графа идет по u.ID.
			var existing domain.User
			err := tx.Select("id").First(&existing, "username = ?", u.Username).Error
			if err == nil {
				u.ID = existing.ID
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.Create(u).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, followerID); err != nil {
			return err
		}
		if err := requireUser(tx, followeeID); err != nil {
			return err
		}
		if followerID == followeeID {
			return fmt.Errorf("you cannot follow yourself: %w", domain.ErrInvalidOperation)
		}

		var count int64
		if err := tx.Model(&domain.Follow{}).
			Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Count(&count).Error; err != nil {
			return err
		}
		// Уже подписан - идемпотентный no-op.
		if count > 0 {
			return nil
		}

		return tx.Create(&domain.Follow{
			FollowerID: followerID,
			FolloweeID: followeeID,
			CreatedAt:  time.Now(),
		}).Error
	})
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, followerID); err != nil {
			return err
		}
		if err := requireUser(tx, followeeID); err != nil {
			return err
		}
		// Удаление отсутствующего ребра - такой же no-op.
		return tx.
			Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Delete(&domain.Follow{}).Error
	})
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, args storage.CreatePostArgs) (*domain.Post, error) {
	var post *domain.Post

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Автор должен существовать.
		if err := requireUser(tx, args.AuthorID); err != nil {
			return err
		}

		// 2. Дневной лимит с местной полуночи.
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		var todayCount int64
		if err := tx.Model(&domain.Post{}).
			Where("author_id = ? AND created_at >= ?", args.AuthorID, startOfDay).
			Count(&todayCount).Error; err != nil {
			return err
		}
		if todayCount >= domain.DailyPostLimit {
			return fmt.Errorf("you have reached the daily limit of %d posts: %w",
				domain.DailyPostLimit, domain.ErrRateLimited)
		}

		// 3. Длина содержимого в символах.
		if utf8.RuneCountInString(args.Content) > domain.MaxContentLength {
			return fmt.Errorf("post cannot exceed %d characters: %w",
				domain.MaxContentLength, domain.ErrInvalidInput)
		}

		// 4. Ссылка на оригинал.
		if !args.Type.Valid() {
			return fmt.Errorf("unknown post type %q: %w", args.Type, domain.ErrInvalidInput)
		}
		if args.Type == domain.PostTypeRegular && args.OriginalPostID != nil {
			return fmt.Errorf("regular post cannot reference an original post: %w", domain.ErrInvalidInput)
		}
		if args.Type.HasLineage() {
			if args.OriginalPostID == nil {
				return fmt.Errorf("original post id is required for %s posts: %w",
					strings.ToLower(string(args.Type)), domain.ErrInvalidInput)
			}
			var originalCount int64
			if err := tx.Model(&domain.Post{}).Where("id = ?", *args.OriginalPostID).Count(&originalCount).Error; err != nil {
				return err
			}
			if originalCount == 0 {
				return fmt.Errorf("original post %s not found: %w", *args.OriginalPostID, domain.ErrNotFound)
			}
		}

		content := args.Content
		if args.Type == domain.PostTypeRepost {
			content = ""
		}

		post = &domain.Post{
			ID:             uuid.NewString(),
			Content:        content,
			AuthorID:       args.AuthorID,
			CreatedAt:      now,
			Type:           args.Type,
			OriginalPostID: args.OriginalPostID,
		}
		if err := tx.Create(post).Error; err != nil {
			return err
		}

		// Инкремент счетчика в той же транзакции, без read-modify-write.
		return tx.Model(&domain.User{}).
			Where("id = ?", args.AuthorID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
	})

	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.ListFilter) ([]*domain.Post, error) {
	query := s.db.WithContext(ctx).Model(&domain.Post{}).Order("created_at DESC")

	if len(filter.AuthorIDs) > 0 {
		query = query.Where("author_id IN ?", filter.AuthorIDs)
	}
	if filter.Username != "" {
		var user domain.User
		if err := s.db.WithContext(ctx).First(&user, "username = ?", filter.Username).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Неизвестный username дает пустую выдачу, не ошибку.
				return []*domain.Post{}, nil
			}
			return nil, err
		}
		query = query.Where("author_id = ?", user.ID)
	}

	var posts []*domain.Post
	err := query.Find(&posts).Error
	return posts, err
}

func (s *Store) SearchPosts(ctx context.Context, query string) ([]*domain.Post, error) {
	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return []*domain.Post{}, nil
	}

	var posts []*domain.Post
	// Репосты исключаются: их содержимое пустое и не несет смысла.
	err := s.db.WithContext(ctx).
		Where("type <> ?", domain.PostTypeRepost).
		Where("content ILIKE ?", "%"+escapeLikePattern(normalized)+"%").
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

// Метасимволы LIKE в запросе ищутся буквально, как подстрока.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePattern(q string) string {
	return likeEscaper.Replace(q)
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	var users []*domain.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	// Грузим все ребра графа для этих пользователей одним запросом.
	var edges []domain.Follow
	if err := s.db.WithContext(ctx).
		Where("follower_id IN ? OR followee_id IN ?", ids, ids).
		Find(&edges).Error; err != nil {
		return nil, err
	}

	results := make(map[string]*domain.User, len(users))
	for _, u := range users {
		results[u.ID] = u
	}
	for _, e := range edges {
		if u, ok := results[e.FollowerID]; ok {
			u.Following = append(u.Following, e.FolloweeID)
		}
		if u, ok := results[e.FolloweeID]; ok {
			u.Followers = append(u.Followers, e.FollowerID)
		}
	}
	return results, nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error) {
	var posts []*domain.Post
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}

	results := make(map[string]*domain.Post, len(posts))
	for _, p := range posts {
		results[p.ID] = p
	}
	return results, nil
}

// === Helpers ===

func requireUser(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&domain.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("user with id %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// loadFollowEdges заполняет Followers/Following из таблицы follows.
func (s *Store) loadFollowEdges(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_id = ?", user.ID).
		Pluck("followee_id", &user.Following).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("followee_id = ?", user.ID).
		Pluck("follower_id", &user.Followers).Error
}
