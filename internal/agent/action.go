package agent

import "fmt"

// Action agent 的离散动作
type Action int

const (
	ActionDoNothing Action = iota
	ActionBuyAtBestAsk
	ActionSellAtBestBid
	ActionBuyAtBestBid
	ActionSellAtBestAsk
	ActionCancelBuyOrder
	ActionCancelSellOrder
)

// Actions 全部动作，按编号排列
var Actions = []Action{
	ActionDoNothing,
	ActionBuyAtBestAsk,
	ActionSellAtBestBid,
	ActionBuyAtBestBid,
	ActionSellAtBestAsk,
	ActionCancelBuyOrder,
	ActionCancelSellOrder,
}

var actionNames = map[Action]string{
	ActionDoNothing:       "DO_NOTHING",
	ActionBuyAtBestAsk:    "BUY_AT_BEST_ASK",
	ActionSellAtBestBid:   "SELL_AT_BEST_BID",
	ActionBuyAtBestBid:    "BUY_AT_BEST_BID",
	ActionSellAtBestAsk:   "SELL_AT_BEST_ASK",
	ActionCancelBuyOrder:  "CANCEL_BUY_ORDER",
	ActionCancelSellOrder: "CANCEL_SELL_ORDER",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Valid 是否为已定义的动作
func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}
