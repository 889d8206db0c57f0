package domain

// Side 买卖方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回反方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid 是否为合法方向
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// ChildOrderType 子订单类型
type ChildOrderType string

const (
	ChildOrderTypeLimit  ChildOrderType = "LIMIT"
	ChildOrderTypeMarket ChildOrderType = "MARKET"
)

// OrderState 订单生命周期状态
type OrderState string

const (
	OrderStateActive    OrderState = "ACTIVE"
	OrderStateCompleted OrderState = "COMPLETED"
	OrderStateCanceled  OrderState = "CANCELED"
	OrderStateExpired   OrderState = "EXPIRED"
	OrderStateRejected  OrderState = "REJECTED"
)

// Order 子订单（字段名与 Lightning REST 返回一致）
type Order struct {
	ID                     int64          `json:"id,omitempty"`
	ChildOrderID           string         `json:"child_order_id"`
	ProductCode            string         `json:"product_code"`
	Side                   Side           `json:"side"`
	ChildOrderType         ChildOrderType `json:"child_order_type"`
	Price                  float64        `json:"price"`
	AveragePrice           float64        `json:"average_price"`
	Size                   float64        `json:"size"`
	ChildOrderState        OrderState     `json:"child_order_state"`
	ExpireDate             string         `json:"expire_date"`
	ChildOrderDate         string         `json:"child_order_date"`
	ChildOrderAcceptanceID string         `json:"child_order_acceptance_id"`
	OutstandingSize        float64        `json:"outstanding_size"`
	CancelSize             float64        `json:"cancel_size"`
	ExecutedSize           float64        `json:"executed_size"`
	TotalCommission        float64        `json:"total_commission"`
	TimeInForce            string         `json:"time_in_force,omitempty"`
}

// IsActive 订单是否仍在挂单
func (o Order) IsActive() bool {
	return o.ChildOrderState == OrderStateActive
}

// OrderFilter getchildorders 的过滤条件，零值表示不过滤
type OrderFilter struct {
	ChildOrderState        OrderState
	ChildOrderAcceptanceID string
	Count                  int
}

// OrderRequest sendchildorder 请求体
type OrderRequest struct {
	ProductCode    string         `json:"product_code"`
	ChildOrderType ChildOrderType `json:"child_order_type"`
	Side           Side           `json:"side"`
	Price          float64        `json:"price,omitempty"`
	Size           float64        `json:"size"`
	MinuteToExpire int            `json:"minute_to_expire,omitempty"`
	TimeInForce    string         `json:"time_in_force,omitempty"`
}

// OrderAck 下单回执
type OrderAck struct {
	ChildOrderAcceptanceID string `json:"child_order_acceptance_id"`
}

// CancelRequest cancelchildorder 请求体，两个 ID 二选一
type CancelRequest struct {
	ProductCode            string `json:"product_code"`
	ChildOrderID           string `json:"child_order_id,omitempty"`
	ChildOrderAcceptanceID string `json:"child_order_acceptance_id,omitempty"`
}
