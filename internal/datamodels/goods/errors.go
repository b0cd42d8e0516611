package goods

import (
	"errors"
	"fmt"
)

// ErrNotFound 商品不存在或已下架
var ErrNotFound = errors.New("goods not found")

// ErrInsufficientStock 库存不足的哨兵错误，配合 errors.Is 使用
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError 库存不足，携带具体商品与数量信息
type InsufficientStockError struct {
	GoodsID   int64
	GoodsName string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("商品 %s(id=%d) 库存不足：需要 %d，剩余 %d",
		e.GoodsName, e.GoodsID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
