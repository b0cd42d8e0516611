package goods

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 商品状态
const (
	StatusUnlisted = 0 // 已下架
	StatusSellable = 1 // 在售
)

// Goods 商品模型
// stock 与 sales 只允许通过仓储的条件更新语句修改，保证库存永不为负
type Goods struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Image       string          `gorm:"size:255" json:"image"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int64           `gorm:"not null;default:0" json:"stock"`
	Sales       int64           `gorm:"not null;default:0" json:"sales"`
	Description string          `gorm:"size:512" json:"description"`
	Status      int             `gorm:"index;not null;default:1" json:"status"` // 0:下架 1:在售
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Goods) TableName() string {
	return "goods"
}

// Sellable 是否可售
func (g *Goods) Sellable() bool {
	return g.Status == StatusSellable
}

// Repository 商品仓储接口，含库存台账操作
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Goods, error)
	// GetSellable 仅返回在售商品，下架或不存在都视为找不到
	GetSellable(ctx context.Context, id int64) (*Goods, error)
	ListSellable(ctx context.Context) ([]*Goods, error)
	ListAll(ctx context.Context) ([]*Goods, error)
	Create(ctx context.Context, g *Goods) error
	Update(ctx context.Context, g *Goods) error

	// TryReserve 条件扣减库存：仅当 stock >= quantity 时生效，
	// 返回 false 表示库存不足（行未受影响）
	TryReserve(ctx context.Context, id, quantity int64) (bool, error)
	// Release 归还库存，取消订单时按行项目逐一调用
	Release(ctx context.Context, id, quantity int64) error
	// IncrementSold 累加销量，仅用于报表，失败不影响订单正确性
	IncrementSold(ctx context.Context, id, quantity int64) error
}
