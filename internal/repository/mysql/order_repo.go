package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
)

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order, items []*order.Item) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return err
	}
	for _, it := range items {
		it.OrderID = o.ID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) ListItems(ctx context.Context, orderID int64) ([]*order.Item, error) {
	var items []*order.Item
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepo) List(ctx context.Context, f order.ListFilter) ([]*order.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&order.Order{})
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.OrderNo != "" {
		q = q.Where("order_no LIKE ?", "%"+f.OrderNo+"%")
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.StartDate != "" {
		q = q.Where("DATE(created_at) >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("DATE(created_at) <= ?", f.EndDate)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	var list []*order.Order
	if err := q.Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateStatus 把前置状态检查放进 UPDATE 的 WHERE 里，
// 两个并发迁移只有一个能改到行，输家通过 RowsAffected 感知
func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, from, to order.Status, extra map[string]interface{}) (bool, error) {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
