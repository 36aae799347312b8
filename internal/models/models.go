package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"         json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:20" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null;size:50" json:"email"`
	PasswordHash string    `gorm:"not null"                     json:"-"`
	Role         Role      `gorm:"not null;default:user"        json:"role"`
	FirstName    string    `gorm:"size:20"                      json:"firstName,omitempty"`
	LastName     string    `gorm:"size:20"                      json:"lastName,omitempty"`
	CreatedAt    time.Time `                                    json:"createdAt"`
	UpdatedAt    time.Time `                                    json:"updatedAt"`
}

type Banner struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type Blog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"              json:"id"`
	Title         string     `gorm:"not null;size:180"                 json:"title"`
	Slug          string     `gorm:"uniqueIndex;not null"              json:"slug"`
	Content       string     `gorm:"not null"                          json:"content"`
	Banner        Banner     `gorm:"embedded;embeddedPrefix:banner_"   json:"banner"`
	AuthorID      uuid.UUID  `gorm:"type:uuid;index;not null"          json:"authorId"`
	Status        string     `gorm:"not null;default:draft;index"      json:"status"`
	ViewsCount    int        `gorm:"not null;default:0"                json:"viewsCount"`
	LikesCount    int        `gorm:"not null;default:0"                json:"likesCount"`
	CommentsCount int        `gorm:"not null;default:0"                json:"commentsCount"`
	PublishedAt   *time.Time `                                         json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `gorm:"index"                             json:"createdAt"`
	UpdatedAt     time.Time  `                                         json:"updatedAt"`
}

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	BlogID    uuid.UUID `gorm:"type:uuid;index;not null" json:"blogId"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	Content   string    `gorm:"not null;size:1000"       json:"content"`
	CreatedAt time.Time `gorm:"index"                    json:"createdAt"`
}

type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                             json:"id"`
	BlogID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_like_blog_user" json:"blogId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_like_blog_user" json:"userId"`
	CreatedAt time.Time `                                                        json:"createdAt"`
}

// Token is the persisted form of a live refresh token. Only the sha256 of
// the token is stored.
type Token struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TokenHash string    `gorm:"uniqueIndex;not null;size:64"`
	UserID    string    `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error    { u.ID = ensureID(u.ID); return nil }
func (b *Blog) BeforeCreate(*gorm.DB) error    { b.ID = ensureID(b.ID); return nil }
func (c *Comment) BeforeCreate(*gorm.DB) error { c.ID = ensureID(c.ID); return nil }
func (l *Like) BeforeCreate(*gorm.DB) error    { l.ID = ensureID(l.ID); return nil }
func (t *Token) BeforeCreate(*gorm.DB) error   { t.ID = ensureID(t.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&User{}, &Blog{}, &Comment{}, &Like{}, &Token{}}
}
