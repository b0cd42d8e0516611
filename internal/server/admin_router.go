package server

import (
	"time"

	"github.com/kataras/iris/v12"
	"github.com/shopspring/decimal"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/auth"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/config"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/goods"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/order"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/infra/mq"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/infra/redis"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/repository/mysql"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/service"
)

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台 Web 服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	goodsSvc := service.NewGoodsService(mysql.NewGoodsRepository(db))
	orderSvc := service.NewOrderService(
		mysql.NewTxRunner(db),
		mysql.NewStores(db),
		service.NewMQEventPublisher(mqConn),
	)
	reconcileSvc := service.NewReconcileService(
		mysql.NewReconciliationRepository(db), cfg.Reconcile.AutoRepair)

	tokenCache := auth.NewTokenCache(redisClient,
		time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	admin := app.Party("/admin", JWTAuth(cfg, tokenCache, true))

	// 订单列表：订单号模糊、状态、下单日期范围
	admin.Get("/orders", func(ctx iris.Context) {
		f := order.ListFilter{
			OrderNo:   ctx.URLParam("order_no"),
			StartDate: ctx.URLParam("start_date"),
			EndDate:   ctx.URLParam("end_date"),
			Page:      ctx.URLParamIntDefault("page", 1),
			PageSize:  ctx.URLParamIntDefault("page_size", 10),
		}
		if raw := ctx.URLParam("status"); raw != "" {
			v, err := ctx.URLParamInt("status")
			if err != nil || v < int(order.StatusPending) || v > int(order.StatusCancelled) {
				ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": "非法的订单状态"})
				return
			}
			st := order.Status(v)
			f.Status = &st
		}
		list, total, err := orderSvc.ListAdmin(ctx.Request().Context(), f)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"list": list, "total": total})
	})

	// 订单详情（管理员可看任意订单）
	admin.Get("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		detail, err := orderSvc.GetOrder(ctx.Request().Context(), id,
			ctx.Values().GetInt64Default("user_id", 0), true)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, detail)
	})

	// 标记支付成功（对接支付回调前的人工通道）
	admin.Post("/orders/{id:int64}/paid", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := orderSvc.MarkPaid(ctx.Request().Context(), id); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, nil)
	})

	// 发货
	admin.Post("/orders/{id:int64}/ship", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req struct {
			ExpressCompany string `json:"express_company" validate:"required,max=64"`
			ExpressNo      string `json:"express_no" validate:"required,max=64"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := validate.Struct(&req); err != nil {
			fail(ctx, err)
			return
		}
		if err := orderSvc.Ship(ctx.Request().Context(), id, req.ExpressCompany, req.ExpressNo); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, nil)
	})

	// 商品管理
	admin.Get("/goods", func(ctx iris.Context) {
		list, err := goodsSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	admin.Post("/goods", func(ctx iris.Context) {
		var req struct {
			Name        string `json:"name" validate:"required,max=100"`
			Image       string `json:"image" validate:"max=255"`
			Price       string `json:"price" validate:"required"`
			Stock       int64  `json:"stock" validate:"min=0"`
			Description string `json:"description"`
			Status      int    `json:"status" validate:"oneof=0 1"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := validate.Struct(&req); err != nil {
			fail(ctx, err)
			return
		}
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": "非法的商品价格"})
			return
		}
		g := &goods.Goods{
			Name:        req.Name,
			Image:       req.Image,
			Price:       price,
			Stock:       req.Stock,
			Description: req.Description,
			Status:      req.Status,
		}
		if err := goodsSvc.Create(ctx.Request().Context(), g); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, g)
	})

	admin.Put("/goods/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		g, err := goodsSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		var req struct {
			Name        *string `json:"name"`
			Image       *string `json:"image"`
			Price       *string `json:"price"`
			Stock       *int64  `json:"stock"`
			Description *string `json:"description"`
			Status      *int    `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if req.Name != nil {
			g.Name = *req.Name
		}
		if req.Image != nil {
			g.Image = *req.Image
		}
		if req.Price != nil {
			price, err := decimal.NewFromString(*req.Price)
			if err != nil || price.IsNegative() {
				ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": "非法的商品价格"})
				return
			}
			g.Price = price
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": "库存不能为负"})
				return
			}
			g.Stock = *req.Stock
		}
		if req.Description != nil {
			g.Description = *req.Description
		}
		if req.Status != nil {
			if *req.Status != goods.StatusUnlisted && *req.Status != goods.StatusSellable {
				ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": 400, "msg": "非法的商品状态"})
				return
			}
			g.Status = *req.Status
		}
		if err := goodsSvc.Update(ctx.Request().Context(), g); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, g)
	})

	// 手动触发一次订单金额对账
	admin.Post("/reconcile/orders", func(ctx iris.Context) {
		report, err := reconcileSvc.Run(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, report)
	})
}
