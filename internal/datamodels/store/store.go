package store

import (
	"context"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
)

// Stores 事务内可见的一组仓储，全部绑定在同一个数据库事务上
type Stores struct {
	Goods     goods.Repository
	Orders    order.Repository
	Addresses address.Repository
}

// TxRunner 在单个原子工作单元内执行 fn：fn 返回错误时整个单元回滚，
// 调用方不需要做任何手工补偿
type TxRunner interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}
