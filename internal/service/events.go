package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// 订单事件类型，供通知/支付协作方消费
const (
	EventOrderCreated     = "order.created"
	EventOrderCancelled   = "order.cancelled"
	EventOrderPaid        = "order.paid"
	EventOrderShipped     = "order.shipped"
	EventOrderCompleted   = "order.completed"
	EventPaymentRequested = "payment.requested"
)

// OrderEventQueue 订单事件队列名，发布方与消费方共用
const OrderEventQueue = "order_events"

// OrderEvent 订单生命周期事件，在事务提交之后发布，
// 发布失败不回滚已提交的订单状态
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	OrderNo     string    `json:"order_no"`
	UserID      int64     `json:"user_id"`
	TotalAmount string    `json:"total_amount,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventPublisher 订单事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

type mqEventPublisher struct {
	conn *amqp.Connection
}

// NewMQEventPublisher 基于 RabbitMQ 的事件发布器
func NewMQEventPublisher(conn *amqp.Connection) EventPublisher {
	return &mqEventPublisher{conn: conn}
}

func (p *mqEventPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(OrderEventQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(&ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		OrderEventQueue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
