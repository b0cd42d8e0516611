package order

// Trigger 生命周期迁移动作
type Trigger string

const (
	TriggerPay     Trigger = "pay"     // pending -> paid
	TriggerShip    Trigger = "ship"    // paid -> shipped
	TriggerConfirm Trigger = "confirm" // shipped -> completed
	TriggerCancel  Trigger = "cancel"  // pending -> cancelled
)

type transition struct {
	from Status
	to   Status
}

// 全量合法迁移表，任何不在表内的状态变更一律拒绝。
// 历史系统曾提供任意 set-status 接口，这里收口为逐迁移的显式操作。
var transitions = map[Trigger]transition{
	TriggerPay:     {from: StatusPending, to: StatusPaid},
	TriggerShip:    {from: StatusPaid, to: StatusShipped},
	TriggerConfirm: {from: StatusShipped, to: StatusCompleted},
	TriggerCancel:  {from: StatusPending, to: StatusCancelled},
}

// Next 返回 trigger 在 from 状态下的目标状态，不合法时 ok 为 false
func Next(from Status, t Trigger) (to Status, ok bool) {
	tr, exists := transitions[t]
	if !exists || tr.from != from {
		return from, false
	}
	return tr.to, true
}
