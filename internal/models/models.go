package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"unique;not null"          json:"email"`
	PasswordHash string     `gorm:"not null"                 json:"-"`
	Role         string     `gorm:"not null;default:user"    json:"role"`
	IsActive     bool       `gorm:"not null;default:true"    json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Token     string    `gorm:"unique;not null"      json:"token"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"default:false"        json:"revoked"`
}

type Post struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"not null"                 json:"title"`
	Content     string     `gorm:"not null"                 json:"content"`
	AuthorID    uint       `gorm:"index;not null"           json:"author_id"`
	Published   bool       `gorm:"not null;default:false"   json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Views       uint       `gorm:"not null;default:0"       json:"views"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    uint      `gorm:"index;not null"           json:"post_id"`
	UserID    uint      `gorm:"not null"                 json:"user_id"`
	Body      string    `gorm:"not null"                 json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type PostLike struct {
	ID     uint `gorm:"primaryKey"                         json:"id"`
	PostID uint `gorm:"uniqueIndex:idx_post_user;not null" json:"post_id"`
	UserID uint `gorm:"uniqueIndex:idx_post_user;not null" json:"user_id"`
}
