package middleware

import (
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
)

const requestIDHeader = "X-Request-Id"

// RequestID 为每个请求生成（或透传）请求标识，写入响应头与上下文，
// 便于日志串联同一次请求的多条记录
func RequestID() iris.Handler {
	return func(ctx iris.Context) {
		rid := ctx.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx.Values().Set("request_id", rid)
		ctx.Header(requestIDHeader, rid)
		ctx.Next()
	}
}
