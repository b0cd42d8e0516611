package order

import (
	"context"

	"github.com/shopspring/decimal"
)

// Drift 订单总额与行项目合计不一致的记录
type Drift struct {
	OrderID       int64           `json:"order_id"`
	OrderNo       string          `json:"order_no"`
	StoredTotal   decimal.Decimal `json:"stored_total"`
	ComputedTotal decimal.Decimal `json:"computed_total"`
}

// ReconciliationRepository 对账专用查询，行项目是金额的唯一事实来源
type ReconciliationRepository interface {
	// FindTotalMismatches 找出 total_amount != Σ subtotal 的订单
	FindTotalMismatches(ctx context.Context) ([]Drift, error)
	// RepairTotal 以重新计算出的合计回写订单总额，
	// 仅当总额仍是 expected 时生效，避免覆盖并发的合法写入
	RepairTotal(ctx context.Context, orderID int64, expected, computed decimal.Decimal) (bool, error)
}
