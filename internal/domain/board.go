package domain

import "encoding/json"

// Health 交易所繁忙度
type Health string

const (
	HealthNormal    Health = "NORMAL"
	HealthBusy      Health = "BUSY"
	HealthVeryBusy  Health = "VERY BUSY"
	HealthSuperBusy Health = "SUPER BUSY"
	HealthNoOrder   Health = "NO ORDER"
	HealthStop      Health = "STOP"
)

// MarketState 板状态
type MarketState string

const (
	MarketStateStarting     MarketState = "STARTING"
	MarketStatePreopen      MarketState = "PREOPEN"
	MarketStateRunning      MarketState = "RUNNING"
	MarketStateClosed       MarketState = "CLOSED"
	MarketStateCircuitBreak MarketState = "CIRCUIT BREAK"
)

// BoardState getboardstate 返回
type BoardState struct {
	Health Health      `json:"health"`
	State  MarketState `json:"state"`
}

// UnmarshalJSON 缺失字段按 NORMAL / RUNNING 处理
func (b *BoardState) UnmarshalJSON(data []byte) error {
	type raw BoardState
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Health == "" {
		r.Health = HealthNormal
	}
	if r.State == "" {
		r.State = MarketStateRunning
	}
	*b = BoardState(r)
	return nil
}

// Healthy 仅 NORMAL + RUNNING 视为可交易
func (b BoardState) Healthy() bool {
	return b.Health == HealthNormal && b.State == MarketStateRunning
}

// PriceLevel 板上一档
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BoardSnapshot lightning_board_snapshot 消息
type BoardSnapshot struct {
	MidPrice float64      `json:"mid_price"`
	Bids     []PriceLevel `json:"bids"`
	Asks     []PriceLevel `json:"asks"`
}

// BestBid 最优买价，bids 按价格降序
func (b BoardSnapshot) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk 最优卖价，asks 按价格升序
func (b BoardSnapshot) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Ticker getticker 返回
type Ticker struct {
	ProductCode string  `json:"product_code"`
	Timestamp   string  `json:"timestamp"`
	BestBid     float64 `json:"best_bid"`
	BestAsk     float64 `json:"best_ask"`
	LTP         float64 `json:"ltp"`
	Volume      float64 `json:"volume"`
}
