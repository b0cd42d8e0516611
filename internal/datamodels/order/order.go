package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status 订单状态，取值与数据库 tinyint 对应
type Status int

const (
	StatusPending   Status = 0 // 待支付
	StatusPaid      Status = 1 // 已支付
	StatusShipped   Status = 2 // 已发货
	StatusCompleted Status = 3 // 已完成
	StatusCancelled Status = 4 // 已取消
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPaid:
		return "paid"
	case StatusShipped:
		return "shipped"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal 终态订单不再允许任何变更
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order 订单模型
// total_amount 由服务端按行项目小计求和得出，创建后恒等于 Σ subtotal
type Order struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	OrderNo        string          `gorm:"uniqueIndex;size:50;not null" json:"order_no"`
	UserID         int64           `gorm:"index;not null" json:"user_id"`
	AddressID      int64           `gorm:"not null" json:"address_id"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status         Status          `gorm:"index;not null;default:0" json:"status"`
	Remark         string          `gorm:"size:255" json:"remark"`
	ExpressCompany string          `gorm:"size:64" json:"express_company"`
	ExpressNo      string          `gorm:"size:64" json:"express_no"`
	PaymentTime    *time.Time      `json:"payment_time"`
	ShipTime       *time.Time      `json:"ship_time"`
	CompleteTime   *time.Time      `json:"complete_time"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// Item 订单行项目，落库时冗余商品名称/图片/单价快照，
// 创建后只读，后续商品改价改名不影响历史订单
type Item struct {
	ID         int64           `gorm:"primaryKey" json:"id"`
	OrderID    int64           `gorm:"index;not null" json:"order_id"`
	GoodsID    int64           `gorm:"index;not null" json:"goods_id"`
	GoodsName  string          `gorm:"size:100;not null" json:"goods_name"`
	GoodsImage string          `gorm:"size:255" json:"goods_image"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (Item) TableName() string {
	return "order_goods"
}

// ListFilter 订单列表查询条件（后台）
type ListFilter struct {
	UserID    int64  // 0 表示不限用户
	OrderNo   string // 模糊匹配
	Status    *Status
	StartDate string // YYYY-MM-DD
	EndDate   string
	Page      int
	PageSize  int
}

// Repository 订单仓储接口
type Repository interface {
	// Create 同时写入订单头与全部行项目，必须在同一事务内调用
	Create(ctx context.Context, o *Order, items []*Item) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	ListItems(ctx context.Context, orderID int64) ([]*Item, error)
	List(ctx context.Context, f ListFilter) ([]*Order, int64, error)

	// UpdateStatus 条件状态迁移：仅当当前状态等于 from 时更新为 to 并附带 extra 字段，
	// 返回 false 表示状态已被并发修改（行未受影响）
	UpdateStatus(ctx context.Context, id int64, from, to Status, extra map[string]interface{}) (bool, error)
}
