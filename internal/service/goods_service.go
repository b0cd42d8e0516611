package service

import (
	"context"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
)

// GoodsService 商品目录服务：前台只读快照，后台简单维护
type GoodsService struct {
	repo goods.Repository
}

func NewGoodsService(repo goods.Repository) *GoodsService {
	return &GoodsService{repo: repo}
}

// ListSellable 前台商品列表，只返回在售商品
func (s *GoodsService) ListSellable(ctx context.Context) ([]*goods.Goods, error) {
	return s.repo.ListSellable(ctx)
}

// GetSellable 前台商品详情，下架商品视为不存在
func (s *GoodsService) GetSellable(ctx context.Context, id int64) (*goods.Goods, error) {
	return s.repo.GetSellable(ctx, id)
}

func (s *GoodsService) ListAll(ctx context.Context) ([]*goods.Goods, error) {
	return s.repo.ListAll(ctx)
}

func (s *GoodsService) GetByID(ctx context.Context, id int64) (*goods.Goods, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *GoodsService) Create(ctx context.Context, g *goods.Goods) error {
	return s.repo.Create(ctx, g)
}

func (s *GoodsService) Update(ctx context.Context, g *goods.Goods) error {
	return s.repo.Update(ctx, g)
}
