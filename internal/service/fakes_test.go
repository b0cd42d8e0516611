package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/store"
)

// memState 内存版数据库，事务通过整体快照/恢复模拟回滚
type memState struct {
	mu          sync.Mutex
	goods       map[int64]*goods.Goods
	orders      map[int64]*order.Order
	items       map[int64][]*order.Item
	addresses   map[int64]*address.Address
	nextOrderID int64
	nextItemID  int64
}

func newMemState() *memState {
	return &memState{
		goods:     make(map[int64]*goods.Goods),
		orders:    make(map[int64]*order.Order),
		items:     make(map[int64][]*order.Item),
		addresses: make(map[int64]*address.Address),
	}
}

func (st *memState) snapshot() *memState {
	st.mu.Lock()
	defer st.mu.Unlock()
	cp := newMemState()
	cp.nextOrderID = st.nextOrderID
	cp.nextItemID = st.nextItemID
	for id, g := range st.goods {
		c := *g
		cp.goods[id] = &c
	}
	for id, o := range st.orders {
		c := *o
		cp.orders[id] = &c
	}
	for id, its := range st.items {
		cis := make([]*order.Item, len(its))
		for i, it := range its {
			c := *it
			cis[i] = &c
		}
		cp.items[id] = cis
	}
	for id, a := range st.addresses {
		c := *a
		cp.addresses[id] = &c
	}
	return cp
}

func (st *memState) restore(snap *memState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.goods = snap.goods
	st.orders = snap.orders
	st.items = snap.items
	st.addresses = snap.addresses
	st.nextOrderID = snap.nextOrderID
	st.nextItemID = snap.nextItemID
}

func (st *memState) stores() store.Stores {
	return store.Stores{
		Goods:     &memGoodsRepo{st: st},
		Orders:    &memOrderRepo{st: st},
		Addresses: &memAddressRepo{st: st},
	}
}

// memTxRunner 串行执行工作单元，失败时恢复快照，
// 对调用方呈现与数据库事务一致的全量提交或全量回滚语义
type memTxRunner struct {
	st   *memState
	txMu sync.Mutex
}

func (r *memTxRunner) InTx(ctx context.Context, fn func(s store.Stores) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	snap := r.st.snapshot()
	if err := fn(r.st.stores()); err != nil {
		r.st.restore(snap)
		return err
	}
	return nil
}

type memGoodsRepo struct {
	st *memState
}

func (r *memGoodsRepo) GetByID(ctx context.Context, id int64) (*goods.Goods, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	g, okk := r.st.goods[id]
	if !okk {
		return nil, goods.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (r *memGoodsRepo) GetSellable(ctx context.Context, id int64) (*goods.Goods, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	g, okk := r.st.goods[id]
	if !okk || g.Status != goods.StatusSellable {
		return nil, goods.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (r *memGoodsRepo) ListSellable(ctx context.Context) ([]*goods.Goods, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*goods.Goods
	for _, g := range r.st.goods {
		if g.Status == goods.StatusSellable {
			c := *g
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memGoodsRepo) ListAll(ctx context.Context) ([]*goods.Goods, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*goods.Goods
	for _, g := range r.st.goods {
		c := *g
		out = append(out, &c)
	}
	return out, nil
}

func (r *memGoodsRepo) Create(ctx context.Context, g *goods.Goods) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c := *g
	r.st.goods[g.ID] = &c
	return nil
}

func (r *memGoodsRepo) Update(ctx context.Context, g *goods.Goods) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c := *g
	r.st.goods[g.ID] = &c
	return nil
}

func (r *memGoodsRepo) TryReserve(ctx context.Context, id, quantity int64) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	g, okk := r.st.goods[id]
	if !okk || g.Stock < quantity {
		return false, nil
	}
	g.Stock -= quantity
	return true, nil
}

func (r *memGoodsRepo) Release(ctx context.Context, id, quantity int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if g, okk := r.st.goods[id]; okk {
		g.Stock += quantity
	}
	return nil
}

func (r *memGoodsRepo) IncrementSold(ctx context.Context, id, quantity int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if g, okk := r.st.goods[id]; okk {
		g.Sales += quantity
	}
	return nil
}

type memOrderRepo struct {
	st *memState
}

func (r *memOrderRepo) Create(ctx context.Context, o *order.Order, items []*order.Item) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.nextOrderID++
	o.ID = r.st.nextOrderID
	o.CreatedAt = time.Now()
	c := *o
	r.st.orders[o.ID] = &c
	for _, it := range items {
		r.st.nextItemID++
		it.ID = r.st.nextItemID
		it.OrderID = o.ID
		ci := *it
		r.st.items[o.ID] = append(r.st.items[o.ID], &ci)
	}
	return nil
}

func (r *memOrderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	o, okk := r.st.orders[id]
	if !okk {
		return nil, order.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (r *memOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, o := range r.st.orders {
		if o.OrderNo == orderNo {
			c := *o
			return &c, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *memOrderRepo) ListItems(ctx context.Context, orderID int64) ([]*order.Item, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*order.Item
	for _, it := range r.st.items[orderID] {
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

func (r *memOrderRepo) List(ctx context.Context, f order.ListFilter) ([]*order.Order, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*order.Order
	for _, o := range r.st.orders {
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.OrderNo != "" && !strings.Contains(o.OrderNo, f.OrderNo) {
			continue
		}
		c := *o
		out = append(out, &c)
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, id int64, from, to order.Status, extra map[string]interface{}) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	o, okk := r.st.orders[id]
	if !okk || o.Status != from {
		return false, nil
	}
	o.Status = to
	now := time.Now()
	for k, v := range extra {
		switch k {
		case "payment_time":
			o.PaymentTime = &now
		case "ship_time":
			o.ShipTime = &now
		case "complete_time":
			o.CompleteTime = &now
		case "express_company":
			o.ExpressCompany = v.(string)
		case "express_no":
			o.ExpressNo = v.(string)
		}
	}
	o.UpdatedAt = now
	return true, nil
}

type memAddressRepo struct {
	st *memState
}

func (r *memAddressRepo) GetOwned(ctx context.Context, id, userID int64) (*address.Address, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a, okk := r.st.addresses[id]
	if !okk || a.UserID != userID {
		return nil, address.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r *memAddressRepo) ListByUser(ctx context.Context, userID int64) ([]*address.Address, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*address.Address
	for _, a := range r.st.addresses {
		if a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memAddressRepo) Create(ctx context.Context, a *address.Address) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c := *a
	r.st.addresses[a.ID] = &c
	return nil
}

// recordingPublisher 记录发布的事件，断言副作用用
type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) byType(t string) []OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []OrderEvent
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
