package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/store"
)

type txRunner struct {
	db *gorm.DB
}

// NewTxRunner 基于 gorm 事务实现 store.TxRunner，
// fn 内拿到的所有仓储都绑定在同一个 tx 上，保证全量提交或全量回滚
func NewTxRunner(db *gorm.DB) store.TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) InTx(ctx context.Context, fn func(s store.Stores) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStores(tx))
	})
}

// NewStores 以同一个 db 句柄组装全部仓储
func NewStores(db *gorm.DB) store.Stores {
	return store.Stores{
		Goods:     NewGoodsRepository(db),
		Orders:    NewOrderRepository(db),
		Addresses: NewAddressRepository(db),
	}
}
