package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
)

// ReconcileReport 单次对账结果
type ReconcileReport struct {
	CheckedAt time.Time     `json:"checked_at"`
	Drifts    []order.Drift `json:"drifts"`
	Repaired  int           `json:"repaired"`
}

// ReconcileService 对账服务：请求路径之外周期性（或按需）重算每个订单的
// Σ subtotal 并与 total_amount 比对。行项目一旦写入就是金额的事实来源，
// 所以修复方向永远是用合计覆盖订单总额。
type ReconcileService struct {
	repo       order.ReconciliationRepository
	autoRepair bool
}

func NewReconcileService(repo order.ReconciliationRepository, autoRepair bool) *ReconcileService {
	return &ReconcileService{repo: repo, autoRepair: autoRepair}
}

// Run 执行一次全量对账，返回漂移清单；autoRepair 开启时顺手修复
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	drifts, err := s.repo.FindTotalMismatches(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{CheckedAt: time.Now(), Drifts: drifts}
	for _, d := range drifts {
		zap.L().Warn("order total drift detected",
			zap.Int64("order_id", d.OrderID),
			zap.String("order_no", d.OrderNo),
			zap.String("stored", d.StoredTotal.StringFixed(2)),
			zap.String("computed", d.ComputedTotal.StringFixed(2)))

		if !s.autoRepair {
			continue
		}
		ok, err := s.repo.RepairTotal(ctx, d.OrderID, d.StoredTotal, d.ComputedTotal)
		if err != nil {
			zap.L().Error("repair order total failed",
				zap.Int64("order_id", d.OrderID), zap.Error(err))
			continue
		}
		if ok {
			report.Repaired++
			zap.L().Info("order total repaired",
				zap.Int64("order_id", d.OrderID),
				zap.String("total", d.ComputedTotal.StringFixed(2)))
		}
	}
	return report, nil
}

// RunEvery 按固定间隔循环对账，ctx 取消后退出
func (s *ReconcileService) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				zap.L().Error("reconcile run failed", zap.Error(err))
			}
		}
	}
}
