package main

import (
	"encoding/json"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/config"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/infra/mq"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/service"
	"github.com/dapeng5004/cursor-wechat-minimall/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./config", "配置文件目录")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Env); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	mqConn := mq.Init(&cfg.RabbitMQ)

	ch, err := mqConn.Channel()
	if err != nil {
		zap.L().Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(service.OrderEventQueue, true, false, false, false, nil); err != nil {
		zap.L().Fatal("failed to declare queue", zap.Error(err))
	}

	// 手动确认模式（auto-ack=false）
	msgs, err := ch.Consume(service.OrderEventQueue, "", false, false, false, false, nil)
	if err != nil {
		zap.L().Fatal("failed to consume", zap.Error(err))
	}

	zap.L().Info("notify worker started, waiting for order events")

	for d := range msgs {
		var ev service.OrderEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			zap.L().Warn("invalid event body", zap.Error(err))
			// 消息格式错误，拒绝并丢弃
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(&ev)
		if err := d.Ack(false); err != nil {
			zap.L().Warn("failed to ack event", zap.Error(err))
		}
	}
}

// handleEvent 把订单事件转成对相应协作方的通知。
// 目前以日志形式落地，接真实的短信/推送/支付网关时替换这里即可。
func handleEvent(ev *service.OrderEvent) {
	switch ev.Type {
	case service.EventPaymentRequested:
		zap.L().Info("forward payment request to gateway",
			zap.Int64("order_id", ev.OrderID),
			zap.String("order_no", ev.OrderNo),
			zap.String("total_amount", ev.TotalAmount))
	case service.EventOrderCreated, service.EventOrderPaid,
		service.EventOrderShipped, service.EventOrderCompleted,
		service.EventOrderCancelled:
		zap.L().Info("notify user of order event",
			zap.String("type", ev.Type),
			zap.Int64("order_id", ev.OrderID),
			zap.String("order_no", ev.OrderNo),
			zap.Int64("user_id", ev.UserID))
	default:
		zap.L().Warn("unknown event type", zap.String("type", ev.Type))
	}
}
