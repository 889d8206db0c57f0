package domain

// ChildOrderEventType child_order_events 的事件类型
type ChildOrderEventType string

const (
	EventOrder        ChildOrderEventType = "ORDER"
	EventOrderFailed  ChildOrderEventType = "ORDER_FAILED"
	EventCancel       ChildOrderEventType = "CANCEL"
	EventCancelFailed ChildOrderEventType = "CANCEL_FAILED"
	EventExecution    ChildOrderEventType = "EXECUTION"
	EventExpire       ChildOrderEventType = "EXPIRE"
)

// ChildOrderEvent 私有频道推送的订单事件
// 数值字段用指针区分"缺失"和 0
type ChildOrderEvent struct {
	EventType              ChildOrderEventType `json:"event_type"`
	ProductCode            string              `json:"product_code"`
	ChildOrderID           string              `json:"child_order_id"`
	ChildOrderAcceptanceID string              `json:"child_order_acceptance_id"`
	ChildOrderType         ChildOrderType      `json:"child_order_type"`
	EventDate              string              `json:"event_date"`
	ExpireDate             string              `json:"expire_date"`
	Side                   Side                `json:"side"`
	Price                  *float64            `json:"price"`
	Size                   *float64            `json:"size"`
	ExecID                 int64               `json:"exec_id,omitempty"`
	Commission             float64             `json:"commission,omitempty"`
	SFD                    float64             `json:"sfd,omitempty"`
	OutstandingSize        *float64            `json:"outstanding_size,omitempty"`
	Reason                 string              `json:"reason,omitempty"`
}

// PriceValue 价格，缺失时为 0
func (e ChildOrderEvent) PriceValue() float64 {
	if e.Price == nil {
		return 0
	}
	return *e.Price
}

// SizeValue 数量，缺失时为 0
func (e ChildOrderEvent) SizeValue() float64 {
	if e.Size == nil {
		return 0
	}
	return *e.Size
}

// ToOrder ORDER 事件转换为新挂单
func (e ChildOrderEvent) ToOrder() Order {
	return Order{
		ChildOrderID:           e.ChildOrderID,
		ProductCode:            e.ProductCode,
		Side:                   e.Side,
		ChildOrderType:         e.ChildOrderType,
		Price:                  e.PriceValue(),
		Size:                   e.SizeValue(),
		ChildOrderState:        OrderStateActive,
		ExpireDate:             e.ExpireDate,
		ChildOrderDate:         e.EventDate,
		ChildOrderAcceptanceID: e.ChildOrderAcceptanceID,
		OutstandingSize:        e.SizeValue(),
	}
}

// ToFill EXECUTION 事件转换为成交
func (e ChildOrderEvent) ToFill() Fill {
	return Fill{
		ProductCode: e.ProductCode,
		Side:        e.Side,
		Price:       e.PriceValue(),
		Size:        e.SizeValue(),
		Commission:  e.Commission,
		Date:        e.EventDate,
	}
}
