package server

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/user"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/service"
)

var validate = validator.New()

// ok 统一成功响应
func ok(ctx iris.Context, data interface{}) {
	ctx.JSON(iris.Map{"code": 0, "msg": "ok", "data": data})
}

// fail 按错误类别映射 HTTP 状态码，存储层内部错误不向客户端透出细节
func fail(ctx iris.Context, err error) {
	var (
		vErrs    validator.ValidationErrors
		stockErr *goods.InsufficientStockError
		transErr *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &vErrs),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrMissingExpressInfo):
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": 401, "msg": err.Error()})
	case errors.Is(err, order.ErrForbidden):
		ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"code": 403, "msg": "无权操作该资源"})
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, goods.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		ctx.StopWithJSON(iris.StatusNotFound, iris.Map{"code": 404, "msg": err.Error()})
	case errors.As(err, &stockErr), errors.Is(err, goods.ErrInsufficientStock):
		ctx.StopWithJSON(iris.StatusConflict, iris.Map{"code": 409, "msg": err.Error()})
	case errors.As(err, &transErr), errors.Is(err, order.ErrInvalidTransition):
		ctx.StopWithJSON(iris.StatusConflict, iris.Map{"code": 409, "msg": err.Error()})
	default:
		zap.L().Error("request failed",
			zap.String("path", ctx.Path()),
			zap.String("request_id", ctx.Values().GetString("request_id")),
			zap.Error(err))
		ctx.StopWithJSON(iris.StatusInternalServerError, iris.Map{"code": 500, "msg": "服务器内部错误"})
	}
}
