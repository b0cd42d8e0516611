package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
)

type goodsRepo struct {
	db *gorm.DB
}

// NewGoodsRepository 创建商品仓储，db 可以是全局实例，也可以是事务 tx
func NewGoodsRepository(db *gorm.DB) goods.Repository {
	return &goodsRepo{db: db}
}

func (r *goodsRepo) GetByID(ctx context.Context, id int64) (*goods.Goods, error) {
	var g goods.Goods
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goods.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *goodsRepo) GetSellable(ctx context.Context, id int64) (*goods.Goods, error) {
	var g goods.Goods
	if err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, goods.StatusSellable).
		First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goods.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *goodsRepo) ListSellable(ctx context.Context) ([]*goods.Goods, error) {
	var list []*goods.Goods
	if err := r.db.WithContext(ctx).
		Where("status = ?", goods.StatusSellable).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *goodsRepo) ListAll(ctx context.Context) ([]*goods.Goods, error) {
	var list []*goods.Goods
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *goodsRepo) Create(ctx context.Context, g *goods.Goods) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *goodsRepo) Update(ctx context.Context, g *goods.Goods) error {
	return r.db.WithContext(ctx).Save(g).Error
}

// TryReserve 条件扣减：把 stock >= quantity 的判断放进 UPDATE 本身，
// 数据库对同一行的并发扣减自行串行化，读-改-写竞态在这里不存在
func (r *goodsRepo) TryReserve(ctx context.Context, id, quantity int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&goods.Goods{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *goodsRepo) Release(ctx context.Context, id, quantity int64) error {
	return r.db.WithContext(ctx).
		Model(&goods.Goods{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
}

func (r *goodsRepo) IncrementSold(ctx context.Context, id, quantity int64) error {
	return r.db.WithContext(ctx).
		Model(&goods.Goods{}).
		Where("id = ?", id).
		UpdateColumn("sales", gorm.Expr("sales + ?", quantity)).Error
}
