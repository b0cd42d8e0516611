package server

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/auth"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/config"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/address"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/infra/mq"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/infra/redis"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/middleware"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/repository/mysql"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/service"
)

// RegisterRoutes 注册前台（买家）HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userSvc := service.NewUserService(mysql.NewUserRepository(db), &cfg.JWT)
	goodsSvc := service.NewGoodsService(mysql.NewGoodsRepository(db))
	addressSvc := service.NewAddressService(mysql.NewAddressRepository(db))
	orderSvc := service.NewOrderService(
		mysql.NewTxRunner(db),
		mysql.NewStores(db),
		service.NewMQEventPublisher(mqConn),
	)

	tokenCache := auth.NewTokenCache(redisClient,
		time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	app.Use(middleware.RequestID())

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username" validate:"required,min=3,max=64"`
			Password string `json:"password" validate:"required,min=6,max=64"`
			Nickname string `json:"nickname" validate:"max=64"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := validate.Struct(&req); err != nil {
			fail(ctx, err)
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Username, req.Password, req.Nickname)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, u)
	})

	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username" validate:"required"`
			Password string `json:"password" validate:"required"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := validate.Struct(&req); err != nil {
			fail(ctx, err)
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"token": token})
	})

	// 商品目录无需登录
	api.Get("/goods", func(ctx iris.Context) {
		list, err := goodsSvc.ListSellable(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	api.Get("/goods/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		g, err := goodsSvc.GetSellable(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, g)
	})

	// 需要登录的接口
	authAPI := api.Party("/", JWTAuth(cfg, tokenCache, false))

	// 收货地址
	authAPI.Get("/addresses", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		list, err := addressSvc.ListByUser(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Post("/addresses", func(ctx iris.Context) {
		var req struct {
			Name      string `json:"name" validate:"required,max=50"`
			Phone     string `json:"phone" validate:"required,max=20"`
			Province  string `json:"province" validate:"required,max=50"`
			City      string `json:"city" validate:"required,max=50"`
			District  string `json:"district" validate:"max=50"`
			Detail    string `json:"detail" validate:"required,max=255"`
			IsDefault bool   `json:"is_default"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := validate.Struct(&req); err != nil {
			fail(ctx, err)
			return
		}
		a := &address.Address{
			UserID:    ctx.Values().GetInt64Default("user_id", 0),
			Name:      req.Name,
			Phone:     req.Phone,
			Province:  req.Province,
			City:      req.City,
			District:  req.District,
			Detail:    req.Detail,
			IsDefault: req.IsDefault,
		}
		if err := addressSvc.Create(ctx.Request().Context(), a); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, a)
	})

	// 下单（带限流）
	authAPI.Post("/orders", middleware.OrderRateLimit(), func(ctx iris.Context) {
		var req struct {
			AddressID int64                    `json:"address_id" validate:"required,gt=0"`
			Items     []service.OrderLineInput `json:"items" validate:"required,min=1,dive"`
			Remark    string                   `json:"remark" validate:"max=255"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := validate.Struct(&req); err != nil {
			fail(ctx, err)
			return
		}
		userID := ctx.Values().GetInt64Default("user_id", 0)
		result, err := orderSvc.CreateOrder(ctx.Request().Context(), userID, req.AddressID, req.Items, req.Remark)
		if err != nil {
			fail(ctx, err)
			return
		}
		zap.L().Info("order created",
			zap.String("order_no", result.OrderNo),
			zap.Int64("user_id", userID),
			zap.String("request_id", ctx.Values().GetString("request_id")))
		ok(ctx, result)
	})

	// 订单列表（可按状态过滤）
	authAPI.Get("/orders", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		var status *order.Status
		if raw := ctx.URLParam("status"); raw != "" {
			v, err := ctx.URLParamInt("status")
			if err != nil || v < int(order.StatusPending) || v > int(order.StatusCancelled) {
				ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": "非法的订单状态"})
				return
			}
			st := order.Status(v)
			status = &st
		}
		page := ctx.URLParamIntDefault("page", 1)
		pageSize := ctx.URLParamIntDefault("page_size", 10)
		list, total, err := orderSvc.ListByUser(ctx.Request().Context(), userID, status, page, pageSize)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"list": list, "total": total})
	})

	// 订单详情
	authAPI.Get("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		detail, err := orderSvc.GetOrder(ctx.Request().Context(), id, userID, false)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, detail)
	})

	// 取消订单（仅待支付可取消，库存随之归还）
	authAPI.Post("/orders/{id:int64}/cancel", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		if err := orderSvc.Cancel(ctx.Request().Context(), id, userID); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, nil)
	})

	// 发起支付
	authAPI.Post("/orders/{id:int64}/pay", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		if err := orderSvc.RequestPayment(ctx.Request().Context(), id, userID); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, nil)
	})

	// 确认收货
	authAPI.Post("/orders/{id:int64}/confirm", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		if err := orderSvc.ConfirmReceipt(ctx.Request().Context(), id, userID); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, nil)
	})
}

// JWTAuth 登录校验中间件，claims 解析结果走 Redis 缓存；
// adminOnly 为 true 时要求管理员身份
func JWTAuth(cfg *config.Config, cache *auth.TokenCache, adminOnly bool) iris.Handler {
	return func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": 401, "msg": "missing token"})
			return
		}

		var claims *auth.Claims
		if cache != nil {
			if cached, hit, err := cache.Get(ctx.Request().Context(), token); err == nil && hit {
				claims = cached
			}
		}
		if claims == nil {
			parsed, err := auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": 401, "msg": "invalid token"})
				return
			}
			claims = parsed
			if cache != nil {
				if err := cache.Set(ctx.Request().Context(), token, claims); err != nil {
					zap.L().Warn("cache token claims failed", zap.Error(err))
				}
			}
		}

		if adminOnly && !claims.IsAdmin {
			ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"code": 403, "msg": "需要管理员权限"})
			return
		}

		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("is_admin", claims.IsAdmin)
		ctx.Next()
	}
}
