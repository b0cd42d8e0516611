package service

import (
	"fmt"
	"sync/atomic"
	"time"
)

// OrderNoGenerator 订单号生成器：时间戳 + 进程内单调计数器。
// 旧实现用时间戳拼随机数，靠墙钟避撞并不可靠；计数器保证同进程内不重复，
// orders.order_no 上的唯一索引兜底跨进程/重启的极端碰撞。
type OrderNoGenerator struct {
	counter uint64
}

// NewOrderNoGenerator 创建生成器，计数器以启动时刻纳秒数为种子，
// 降低进程快速重启后与旧序列撞号的概率
func NewOrderNoGenerator() *OrderNoGenerator {
	return &OrderNoGenerator{counter: uint64(time.Now().UnixNano()) % 1000000}
}

// Next 生成下一个订单号，形如 ORD20250901120301000042
func (g *OrderNoGenerator) Next() string {
	seq := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("ORD%s%06d", time.Now().Format("20060102150405"), seq%1000000)
}
