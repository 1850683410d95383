package domain

import "time"

// PostType определяет вариант поста.
type PostType string

const (
	PostTypeRegular PostType = "REGULAR"
	PostTypeRepost  PostType = "REPOST"
	PostTypeQuote   PostType = "QUOTE"
	PostTypeReply   PostType = "REPLY"
)

// Valid сообщает, известен ли данный вариант поста.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeRegular, PostTypeRepost, PostTypeQuote, PostTypeReply:
		return true
	}
	return false
}

// HasLineage сообщает, ссылается ли пост этого типа на оригинальный пост.
func (t PostType) HasLineage() bool {
	return t.Valid() && t != PostTypeRegular
}

// MaxContentLength - максимальная длина содержимого поста в символах.
const MaxContentLength = 777

// DailyPostLimit - максимальное число успешных публикаций на автора за календарный день.
const DailyPostLimit = 5

// User представляет пользователя и его место в графе подписок.
type User struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	Username  string    `json:"username" gorm:"type:varchar(255);uniqueIndex;not null"`
	JoinedAt  time.Time `json:"joinedAt" gorm:"not null"`
	PostCount int       `json:"postCount" gorm:"not null;default:0"`
	// Followers и Following заполняются из таблицы follows при чтении.
	Followers []string `json:"followers" gorm:"-"`
	Following []string `json:"following" gorm:"-"`
}

// IsFollowing сообщает, подписан ли пользователь на userID.
func (u *User) IsFollowing(userID string) bool {
	for _, id := range u.Following {
		if id == userID {
			return true
		}
	}
	return false
}

// Post представляет пост в ленте. Связь с оригинальным постом хранится
// только как ссылка по id; поля Author и OriginalPost - проекция для
// отображения, заполняются на чтении и никогда не сохраняются.
type Post struct {
	ID             string    `json:"id" gorm:"type:uuid;primary_key"`
	Content        string    `json:"content" gorm:"type:varchar(777);not null"`
	AuthorID       string    `json:"authorId" gorm:"type:uuid;not null;index:idx_posts_author_created"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null;index:idx_posts_author_created"`
	Type           PostType  `json:"type" gorm:"type:varchar(16);not null"`
	OriginalPostID *string   `json:"originalPostId,omitempty" gorm:"type:uuid;index"`

	Author       *User `json:"author,omitempty" gorm:"-"`
	OriginalPost *Post `json:"originalPost,omitempty" gorm:"-"`
}

// Follow - ребро графа подписок (используется только gorm-бэкендом).
type Follow struct {
	FollowerID string    `gorm:"type:uuid;primaryKey"`
	FolloweeID string    `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null"`
}
