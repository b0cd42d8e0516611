package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/store"
)

// OrderLineInput 下单行项目请求
type OrderLineInput struct {
	GoodsID  int64 `json:"goods_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,min=1"`
}

// CreateOrderResult 下单结果
type CreateOrderResult struct {
	OrderID     int64           `json:"order_id"`
	OrderNo     string          `json:"order_no"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderDetail 订单详情：订单头 + 行项目 + 收货地址
type OrderDetail struct {
	Order   *order.Order     `json:"order"`
	Items   []*order.Item    `json:"items"`
	Address *address.Address `json:"address,omitempty"`
}

// OrderService 订单生命周期服务。
// 它是 status 及各时间戳字段的唯一写入方，所有跨表写操作都在
// 单个数据库事务内完成，事务内不做任何外部 I/O；
// 事件发布与销量累加放在提交之后，失败只记日志。
type OrderService struct {
	tx     store.TxRunner
	stores store.Stores // 事务外的读与提交后的销量累加
	events EventPublisher
	gen    *OrderNoGenerator
}

// NewOrderService 创建订单服务，events 传 nil 则跳过事件发布
func NewOrderService(tx store.TxRunner, stores store.Stores, events EventPublisher) *OrderService {
	return &OrderService{
		tx:     tx,
		stores: stores,
		events: events,
		gen:    NewOrderNoGenerator(),
	}
}

// CreateOrder 创建订单：校验地址归属、逐行读取商品快照并条件扣减库存、
// 服务端求和总额、写入订单头与全部行项目——整体一个原子工作单元。
// 任意一行库存不足或商品不可售，单元内此前的扣减全部回滚，不会产生半个订单。
func (s *OrderService) CreateOrder(ctx context.Context, userID, addressID int64, lines []OrderLineInput, remark string) (*CreateOrderResult, error) {
	if len(lines) == 0 {
		return nil, order.ErrEmptyItems
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, order.ErrInvalidQuantity
		}
	}

	var (
		created *order.Order
		items   []*order.Item
	)

	err := s.tx.InTx(ctx, func(st store.Stores) error {
		// 1. 地址必须存在且属于下单用户
		if _, err := st.Addresses.GetOwned(ctx, addressID, userID); err != nil {
			return err
		}

		total := decimal.Zero
		items = items[:0]
		for _, l := range lines {
			// 2. 商品快照：价格/名称/图片以下单瞬间为准
			g, err := st.Goods.GetSellable(ctx, l.GoodsID)
			if err != nil {
				return fmt.Errorf("商品 %d: %w", l.GoodsID, err)
			}

			// 3. 条件扣减，输掉并发竞争或库存不够都在这里显形
			ok, err := st.Goods.TryReserve(ctx, g.ID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				cur, err := st.Goods.GetByID(ctx, g.ID)
				available := int64(0)
				if err == nil {
					available = cur.Stock
				}
				return &goods.InsufficientStockError{
					GoodsID:   g.ID,
					GoodsName: g.Name,
					Requested: l.Quantity,
					Available: available,
				}
			}

			subtotal := g.Price.Mul(decimal.NewFromInt(l.Quantity))
			total = total.Add(subtotal)
			items = append(items, &order.Item{
				GoodsID:    g.ID,
				GoodsName:  g.Name,
				GoodsImage: g.Image,
				Price:      g.Price,
				Quantity:   l.Quantity,
				Subtotal:   subtotal,
			})
		}

		// 4. 总额只认服务端算出来的这个数，客户端传什么都不看
		created = &order.Order{
			OrderNo:     s.gen.Next(),
			UserID:      userID,
			AddressID:   addressID,
			TotalAmount: total,
			Status:      order.StatusPending,
			Remark:      remark,
		}
		return st.Orders.Create(ctx, created, items)
	})
	if err != nil {
		return nil, err
	}

	// 提交之后的非关键副作用：销量累加与事件发布，失败不影响订单
	for _, it := range items {
		if err := s.stores.Goods.IncrementSold(ctx, it.GoodsID, it.Quantity); err != nil {
			zap.L().Warn("increment sold failed",
				zap.Int64("goods_id", it.GoodsID),
				zap.Int64("quantity", it.Quantity),
				zap.Error(err))
		}
	}
	s.publish(ctx, OrderEvent{
		Type:        EventOrderCreated,
		OrderID:     created.ID,
		OrderNo:     created.OrderNo,
		UserID:      userID,
		TotalAmount: created.TotalAmount.StringFixed(2),
	})

	return &CreateOrderResult{
		OrderID:     created.ID,
		OrderNo:     created.OrderNo,
		TotalAmount: created.TotalAmount,
	}, nil
}

// Cancel 取消订单：仅 pending 可取消，按行项目逐一归还库存，
// 状态写入与库存归还在同一事务里，崩溃不会留下"还了库存但订单没取消"的中间态
func (s *OrderService) Cancel(ctx context.Context, orderID, userID int64) error {
	var cancelled *order.Order
	err := s.tx.InTx(ctx, func(st store.Stores) error {
		o, err := st.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return order.ErrForbidden
		}

		to, legal := order.Next(o.Status, order.TriggerCancel)
		if !legal {
			return &order.InvalidTransitionError{OrderID: orderID, Current: o.Status, Trigger: order.TriggerCancel}
		}

		// 条件更新兜底同一订单上的并发迁移（比如 Cancel 和 MarkPaid 赛跑）
		ok, err := st.Orders.UpdateStatus(ctx, orderID, o.Status, to, nil)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionConflict(ctx, st, orderID, order.TriggerCancel)
		}

		items, err := st.Orders.ListItems(ctx, orderID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := st.Goods.Release(ctx, it.GoodsID, it.Quantity); err != nil {
				return err
			}
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, OrderEvent{
		Type:    EventOrderCancelled,
		OrderID: orderID,
		OrderNo: cancelled.OrderNo,
		UserID:  userID,
	})
	return nil
}

// MarkPaid 支付成功回调：pending -> paid，写入支付时间
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64) error {
	o, err := s.applyTransition(ctx, orderID, order.TriggerPay, map[string]interface{}{
		"payment_time": time.Now(),
	})
	if err != nil {
		return err
	}
	s.publish(ctx, OrderEvent{Type: EventOrderPaid, OrderID: orderID, OrderNo: o.OrderNo, UserID: o.UserID})
	return nil
}

// Ship 发货：paid -> shipped，必须带上快递公司与单号
func (s *OrderService) Ship(ctx context.Context, orderID int64, expressCompany, expressNo string) error {
	if expressCompany == "" || expressNo == "" {
		return order.ErrMissingExpressInfo
	}
	o, err := s.applyTransition(ctx, orderID, order.TriggerShip, map[string]interface{}{
		"ship_time":       time.Now(),
		"express_company": expressCompany,
		"express_no":      expressNo,
	})
	if err != nil {
		return err
	}
	s.publish(ctx, OrderEvent{Type: EventOrderShipped, OrderID: orderID, OrderNo: o.OrderNo, UserID: o.UserID})
	return nil
}

// ConfirmReceipt 确认收货：shipped -> completed，只有买家本人可操作
func (s *OrderService) ConfirmReceipt(ctx context.Context, orderID, userID int64) error {
	o, err := s.stores.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return order.ErrForbidden
	}
	if _, err := s.applyTransition(ctx, orderID, order.TriggerConfirm, map[string]interface{}{
		"complete_time": time.Now(),
	}); err != nil {
		return err
	}
	s.publish(ctx, OrderEvent{Type: EventOrderCompleted, OrderID: orderID, OrderNo: o.OrderNo, UserID: userID})
	return nil
}

// RequestPayment 发起支付：订单必须是本人的 pending 单，
// 支付意图以事件形式交给支付协作方，网关结果回来后走 MarkPaid
func (s *OrderService) RequestPayment(ctx context.Context, orderID, userID int64) error {
	o, err := s.stores.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return order.ErrForbidden
	}
	if o.Status != order.StatusPending {
		return &order.InvalidTransitionError{OrderID: orderID, Current: o.Status, Trigger: order.TriggerPay}
	}
	if s.events == nil {
		return nil
	}
	return s.events.Publish(ctx, OrderEvent{
		Type:        EventPaymentRequested,
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		OccurredAt:  time.Now(),
	})
}

// GetOrder 读取订单详情，买家只能看自己的订单
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID int64, isAdmin bool) (*OrderDetail, error) {
	o, err := s.stores.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != requesterID {
		return nil, order.ErrForbidden
	}
	items, err := s.stores.Orders.ListItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	detail := &OrderDetail{Order: o, Items: items}
	if addr, err := s.stores.Addresses.GetOwned(ctx, o.AddressID, o.UserID); err == nil {
		detail.Address = addr
	}
	return detail, nil
}

// ListByUser 买家订单列表
func (s *OrderService) ListByUser(ctx context.Context, userID int64, status *order.Status, page, pageSize int) ([]*order.Order, int64, error) {
	return s.stores.Orders.List(ctx, order.ListFilter{
		UserID:   userID,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
}

// ListAdmin 后台订单列表，支持订单号模糊、状态、日期范围过滤
func (s *OrderService) ListAdmin(ctx context.Context, f order.ListFilter) ([]*order.Order, int64, error) {
	return s.stores.Orders.List(ctx, f)
}

// applyTransition 单语句条件迁移：WHERE 带上期望的前置状态，
// 行未受影响说明状态已被并发修改或本来就不合法
func (s *OrderService) applyTransition(ctx context.Context, orderID int64, t order.Trigger, extra map[string]interface{}) (*order.Order, error) {
	o, err := s.stores.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	to, legal := order.Next(o.Status, t)
	if !legal {
		return nil, &order.InvalidTransitionError{OrderID: orderID, Current: o.Status, Trigger: t}
	}
	ok, err := s.stores.Orders.UpdateStatus(ctx, orderID, o.Status, to, extra)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, err := s.stores.Orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, &order.InvalidTransitionError{OrderID: orderID, Current: cur.Status, Trigger: t}
	}
	return o, nil
}

// transitionConflict 条件更新竞争失败后，重读当前状态给出准确的错误信息
func (s *OrderService) transitionConflict(ctx context.Context, st store.Stores, orderID int64, t order.Trigger) error {
	cur, err := st.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	return &order.InvalidTransitionError{OrderID: orderID, Current: cur.Status, Trigger: t}
}

func (s *OrderService) publish(ctx context.Context, ev OrderEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = time.Now()
	if err := s.events.Publish(ctx, ev); err != nil {
		zap.L().Warn("publish order event failed",
			zap.String("type", ev.Type),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err))
	}
}
