package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
)

type addressRepo struct {
	db *gorm.DB
}

// NewAddressRepository 创建地址仓储
func NewAddressRepository(db *gorm.DB) address.Repository {
	return &addressRepo{db: db}
}

func (r *addressRepo) GetOwned(ctx context.Context, id, userID int64) (*address.Address, error) {
	var a address.Address
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, address.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *addressRepo) ListByUser(ctx context.Context, userID int64) ([]*address.Address, error) {
	var list []*address.Address
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *addressRepo) Create(ctx context.Context, a *address.Address) error {
	return r.db.WithContext(ctx).Create(a).Error
}
