package user

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 用户不存在
var ErrNotFound = errors.New("用户不存在")

// User 用户模型
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"` // 已加密密码
	Salt      string    `gorm:"size:64" json:"-"`
	Nickname  string    `gorm:"size:64" json:"nickname"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository 用户仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
}
