package address

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 地址不存在或不属于该用户
var ErrNotFound = errors.New("address not found")

// Address 收货地址模型
type Address struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Phone     string    `gorm:"size:20;not null" json:"phone"`
	Province  string    `gorm:"size:50;not null" json:"province"`
	City      string    `gorm:"size:50;not null" json:"city"`
	District  string    `gorm:"size:50;not null" json:"district"`
	Detail    string    `gorm:"size:255;not null" json:"detail"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Address) TableName() string {
	return "addresses"
}

// Repository 地址仓储接口
type Repository interface {
	// GetOwned 校验归属的读取：地址必须存在且属于 userID
	GetOwned(ctx context.Context, id, userID int64) (*Address, error)
	ListByUser(ctx context.Context, userID int64) ([]*Address, error)
	Create(ctx context.Context, a *Address) error
}
