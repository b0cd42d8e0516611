package mysql

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
)

type reconcileRepo struct {
	db *gorm.DB
}

// NewReconciliationRepository 创建对账仓储
func NewReconciliationRepository(db *gorm.DB) order.ReconciliationRepository {
	return &reconcileRepo{db: db}
}

func (r *reconcileRepo) FindTotalMismatches(ctx context.Context) ([]order.Drift, error) {
	var drifts []order.Drift
	err := r.db.WithContext(ctx).Raw(`
		SELECT o.id AS order_id,
		       o.order_no,
		       o.total_amount AS stored_total,
		       COALESCE(SUM(og.subtotal), 0) AS computed_total
		FROM orders o
		LEFT JOIN order_goods og ON og.order_id = o.id
		GROUP BY o.id, o.order_no, o.total_amount
		HAVING o.total_amount <> COALESCE(SUM(og.subtotal), 0)
		ORDER BY o.id`).
		Scan(&drifts).Error
	if err != nil {
		return nil, err
	}
	return drifts, nil
}

func (r *reconcileRepo) RepairTotal(ctx context.Context, orderID int64, expected, computed decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("id = ? AND total_amount = ?", orderID, expected).
		UpdateColumn("total_amount", computed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
