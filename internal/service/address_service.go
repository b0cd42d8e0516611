package service

import (
	"context"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
)

// AddressService 收货地址服务（地址簿协作方的最小闭环：下单要校验归属）
type AddressService struct {
	repo address.Repository
}

func NewAddressService(repo address.Repository) *AddressService {
	return &AddressService{repo: repo}
}

func (s *AddressService) ListByUser(ctx context.Context, userID int64) ([]*address.Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *AddressService) Create(ctx context.Context, a *address.Address) error {
	return s.repo.Create(ctx, a)
}
