package order

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 订单不存在
	ErrNotFound = errors.New("order not found")
	// ErrForbidden 订单不属于当前请求者
	ErrForbidden = errors.New("order does not belong to requester")
	// ErrEmptyItems 下单商品列表为空
	ErrEmptyItems = errors.New("order must contain at least one item")
	// ErrInvalidQuantity 行项目数量必须 >= 1
	ErrInvalidQuantity = errors.New("item quantity must be at least 1")
	// ErrMissingExpressInfo 发货必须携带快递公司与单号
	ErrMissingExpressInfo = errors.New("express company and tracking number are required")
	// ErrInvalidTransition 非法状态迁移的哨兵错误
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// InvalidTransitionError 非法状态迁移，告知当前状态与请求的动作
type InvalidTransitionError struct {
	OrderID int64
	Current Status
	Trigger Trigger
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("订单 %d 当前状态为 %s，不允许执行 %s", e.OrderID, e.Current, e.Trigger)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
