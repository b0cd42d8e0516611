package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
)

func newTestOrderService() (*OrderService, *memState, *recordingPublisher) {
	st := newMemState()
	st.goods[1] = &goods.Goods{ID: 1, Name: "咖啡杯", Price: decimal.RequireFromString("19.90"), Stock: 10, Status: goods.StatusSellable}
	st.goods[2] = &goods.Goods{ID: 2, Name: "保温壶", Price: decimal.RequireFromString("45.50"), Stock: 3, Status: goods.StatusSellable}
	st.goods[3] = &goods.Goods{ID: 3, Name: "已下架的盘子", Price: decimal.RequireFromString("9.90"), Stock: 100, Status: goods.StatusUnlisted}
	st.addresses[1] = &address.Address{ID: 1, UserID: 100, Name: "张三", Phone: "13800000000", Detail: "某街道1号"}
	st.addresses[2] = &address.Address{ID: 2, UserID: 200, Name: "李四", Phone: "13900000000", Detail: "某街道2号"}

	pub := &recordingPublisher{}
	svc := NewOrderService(&memTxRunner{st: st}, st.stores(), pub)
	return svc, st, pub
}

func TestCreateOrderTotalEqualsSumOfSubtotals(t *testing.T) {
	svc, st, pub := newTestOrderService()

	result, err := svc.CreateOrder(context.Background(), 100, 1, []OrderLineInput{
		{GoodsID: 1, Quantity: 2},
		{GoodsID: 2, Quantity: 1},
	}, "尽快发货")
	require.NoError(t, err)
	require.NotNil(t, result)

	// 19.90*2 + 45.50 = 85.30
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("85.30")),
		"total = %s", result.TotalAmount)

	detail, err := svc.GetOrder(context.Background(), result.OrderID, 100, false)
	require.NoError(t, err)
	require.Len(t, detail.Items, 2)

	sum := decimal.Zero
	for _, it := range detail.Items {
		assert.True(t, it.Subtotal.Equal(it.Price.Mul(decimal.NewFromInt(it.Quantity))))
		sum = sum.Add(it.Subtotal)
	}
	assert.True(t, detail.Order.TotalAmount.Equal(sum))
	assert.Equal(t, order.StatusPending, detail.Order.Status)

	// 库存已扣、销量已加
	assert.Equal(t, int64(8), st.goods[1].Stock)
	assert.Equal(t, int64(2), st.goods[2].Stock)
	assert.Equal(t, int64(2), st.goods[1].Sales)

	require.Len(t, pub.byType(EventOrderCreated), 1)
}

func TestCreateOrderDuplicateGoodsLines(t *testing.T) {
	svc, st, _ := newTestOrderService()

	// 同一商品出现在两行，按独立行处理，库存合计扣减
	result, err := svc.CreateOrder(context.Background(), 100, 1, []OrderLineInput{
		{GoodsID: 1, Quantity: 1},
		{GoodsID: 1, Quantity: 3},
	}, "")
	require.NoError(t, err)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("79.60")))
	assert.Equal(t, int64(6), st.goods[1].Stock)
}

func TestCreateOrderInsufficientStockRollsBackEverything(t *testing.T) {
	svc, st, pub := newTestOrderService()

	// 第二行要 5 件，库存只有 3，第一行已扣掉的 2 件必须回滚
	_, err := svc.CreateOrder(context.Background(), 100, 1, []OrderLineInput{
		{GoodsID: 1, Quantity: 2},
		{GoodsID: 2, Quantity: 5},
	}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, goods.ErrInsufficientStock))

	var stockErr *goods.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(2), stockErr.GoodsID)
	assert.Equal(t, int64(5), stockErr.Requested)
	assert.Equal(t, int64(3), stockErr.Available)

	// 库存、订单、事件全都没有留下痕迹
	assert.Equal(t, int64(10), st.goods[1].Stock)
	assert.Equal(t, int64(3), st.goods[2].Stock)
	assert.Empty(t, st.orders)
	assert.Empty(t, pub.byType(EventOrderCreated))
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _ := newTestOrderService()
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, 100, 1, nil, "")
	assert.ErrorIs(t, err, order.ErrEmptyItems)

	_, err = svc.CreateOrder(ctx, 100, 1, []OrderLineInput{{GoodsID: 1, Quantity: 0}}, "")
	assert.ErrorIs(t, err, order.ErrInvalidQuantity)

	// 地址不属于下单用户
	_, err = svc.CreateOrder(ctx, 100, 2, []OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	assert.ErrorIs(t, err, address.ErrNotFound)

	// 下架商品不可下单
	_, err = svc.CreateOrder(ctx, 100, 1, []OrderLineInput{{GoodsID: 3, Quantity: 1}}, "")
	assert.ErrorIs(t, err, goods.ErrNotFound)
}

func TestCreateOrderConcurrentNoOversell(t *testing.T) {
	svc, st, _ := newTestOrderService()
	st.goods[1].Stock = 5

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(context.Background(), 100, 1,
				[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, goods.ErrInsufficientStock))
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, int64(0), st.goods[1].Stock)
	assert.Len(t, st.orders, 5)
}

func TestCancelRestoresStock(t *testing.T) {
	svc, st, pub := newTestOrderService()

	result, err := svc.CreateOrder(context.Background(), 100, 1, []OrderLineInput{
		{GoodsID: 1, Quantity: 2},
		{GoodsID: 2, Quantity: 1},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(8), st.goods[1].Stock)

	require.NoError(t, svc.Cancel(context.Background(), result.OrderID, 100))

	assert.Equal(t, order.StatusCancelled, st.orders[result.OrderID].Status)
	assert.Equal(t, int64(10), st.goods[1].Stock)
	assert.Equal(t, int64(3), st.goods[2].Stock)
	// 销量不随取消回退
	assert.Equal(t, int64(2), st.goods[1].Sales)
	require.Len(t, pub.byType(EventOrderCancelled), 1)
}

func TestCancelOnlyFromPending(t *testing.T) {
	svc, st, _ := newTestOrderService()

	result, err := svc.CreateOrder(context.Background(), 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)

	require.NoError(t, svc.MarkPaid(context.Background(), result.OrderID))

	err = svc.Cancel(context.Background(), result.OrderID, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	var transErr *order.InvalidTransitionError
	require.True(t, errors.As(err, &transErr))
	assert.Equal(t, order.StatusPaid, transErr.Current)

	// 已支付订单取消失败，库存不动
	assert.Equal(t, int64(9), st.goods[1].Stock)
}

func TestCancelForbiddenForOtherUser(t *testing.T) {
	svc, _, _ := newTestOrderService()

	result, err := svc.CreateOrder(context.Background(), 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), result.OrderID, 200)
	assert.ErrorIs(t, err, order.ErrForbidden)
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, st, pub := newTestOrderService()
	ctx := context.Background()

	result, err := svc.CreateOrder(ctx, 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)
	id := result.OrderID

	require.NoError(t, svc.MarkPaid(ctx, id))
	assert.Equal(t, order.StatusPaid, st.orders[id].Status)
	assert.NotNil(t, st.orders[id].PaymentTime)

	require.NoError(t, svc.Ship(ctx, id, "顺丰", "SF123456789"))
	assert.Equal(t, order.StatusShipped, st.orders[id].Status)
	assert.NotNil(t, st.orders[id].ShipTime)
	assert.Equal(t, "顺丰", st.orders[id].ExpressCompany)

	require.NoError(t, svc.ConfirmReceipt(ctx, id, 100))
	assert.Equal(t, order.StatusCompleted, st.orders[id].Status)
	assert.NotNil(t, st.orders[id].CompleteTime)

	require.Len(t, pub.byType(EventOrderPaid), 1)
	require.Len(t, pub.byType(EventOrderShipped), 1)
	require.Len(t, pub.byType(EventOrderCompleted), 1)
}

func TestLifecycleRejectsSkips(t *testing.T) {
	svc, _, _ := newTestOrderService()
	ctx := context.Background()

	result, err := svc.CreateOrder(ctx, 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)
	id := result.OrderID

	// pending 不能直接发货或确认收货
	assert.ErrorIs(t, svc.Ship(ctx, id, "顺丰", "SF1"), order.ErrInvalidTransition)
	assert.ErrorIs(t, svc.ConfirmReceipt(ctx, id, 100), order.ErrInvalidTransition)

	require.NoError(t, svc.MarkPaid(ctx, id))
	// 重复支付
	assert.ErrorIs(t, svc.MarkPaid(ctx, id), order.ErrInvalidTransition)

	require.NoError(t, svc.Ship(ctx, id, "顺丰", "SF1"))
	require.NoError(t, svc.ConfirmReceipt(ctx, id, 100))

	// 终态之后一切动作被拒绝
	assert.ErrorIs(t, svc.MarkPaid(ctx, id), order.ErrInvalidTransition)
	assert.ErrorIs(t, svc.Ship(ctx, id, "顺丰", "SF2"), order.ErrInvalidTransition)
	assert.ErrorIs(t, svc.Cancel(ctx, id, 100), order.ErrInvalidTransition)
}

func TestShipRequiresExpressInfo(t *testing.T) {
	svc, _, _ := newTestOrderService()
	ctx := context.Background()

	result, err := svc.CreateOrder(ctx, 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(ctx, result.OrderID))

	assert.ErrorIs(t, svc.Ship(ctx, result.OrderID, "", "SF1"), order.ErrMissingExpressInfo)
	assert.ErrorIs(t, svc.Ship(ctx, result.OrderID, "顺丰", ""), order.ErrMissingExpressInfo)
	require.NoError(t, svc.Ship(ctx, result.OrderID, "顺丰", "SF1"))
}

func TestConfirmReceiptOwnerOnly(t *testing.T) {
	svc, _, _ := newTestOrderService()
	ctx := context.Background()

	result, err := svc.CreateOrder(ctx, 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(ctx, result.OrderID))
	require.NoError(t, svc.Ship(ctx, result.OrderID, "顺丰", "SF1"))

	assert.ErrorIs(t, svc.ConfirmReceipt(ctx, result.OrderID, 200), order.ErrForbidden)
	require.NoError(t, svc.ConfirmReceipt(ctx, result.OrderID, 100))
}

func TestRequestPayment(t *testing.T) {
	svc, _, pub := newTestOrderService()
	ctx := context.Background()

	result, err := svc.CreateOrder(ctx, 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.RequestPayment(ctx, result.OrderID, 200), order.ErrForbidden)

	require.NoError(t, svc.RequestPayment(ctx, result.OrderID, 100))
	require.Len(t, pub.byType(EventPaymentRequested), 1)

	require.NoError(t, svc.MarkPaid(ctx, result.OrderID))
	assert.ErrorIs(t, svc.RequestPayment(ctx, result.OrderID, 100), order.ErrInvalidTransition)
}

func TestGetOrderVisibility(t *testing.T) {
	svc, _, _ := newTestOrderService()
	ctx := context.Background()

	result, err := svc.CreateOrder(ctx, 100, 1,
		[]OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)

	// 买家本人可见，且带收货地址
	detail, err := svc.GetOrder(ctx, result.OrderID, 100, false)
	require.NoError(t, err)
	require.NotNil(t, detail.Address)
	assert.Equal(t, "张三", detail.Address.Name)

	// 他人不可见
	_, err = svc.GetOrder(ctx, result.OrderID, 200, false)
	assert.ErrorIs(t, err, order.ErrForbidden)

	// 管理员可见任何订单
	_, err = svc.GetOrder(ctx, result.OrderID, 999, true)
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, 424242, 100, false)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestListByUserFiltersStatus(t *testing.T) {
	svc, _, _ := newTestOrderService()
	ctx := context.Background()

	r1, err := svc.CreateOrder(ctx, 100, 1, []OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, 100, 1, []OrderLineInput{{GoodsID: 1, Quantity: 1}}, "")
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(ctx, r1.OrderID))

	all, total, err := svc.ListByUser(ctx, 100, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	paid := order.StatusPaid
	got, total, err := svc.ListByUser(ctx, 100, &paid, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, r1.OrderID, got[0].ID)
}
