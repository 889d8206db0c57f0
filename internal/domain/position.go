package domain

// Position 持仓（getpositions 返回的一条建玉）
type Position struct {
	ProductCode         string  `json:"product_code"`
	Side                Side    `json:"side"`
	Price               float64 `json:"price"`
	Size                float64 `json:"size"`
	Commission          float64 `json:"commission"`
	SwapPointAccumulate float64 `json:"swap_point_accumulate"`
	RequireCollateral   float64 `json:"require_collateral"`
	OpenDate            string  `json:"open_date"`
	Leverage            float64 `json:"leverage"`
	PnL                 float64 `json:"pnl"`
	SFD                 float64 `json:"sfd"`
}

// Fill 一次成交，用于持仓净额结算
type Fill struct {
	ProductCode string
	Side        Side
	Price       float64
	Size        float64
	Commission  float64
	Date        string
}

// ToPosition 将成交剩余部分转换为新持仓
func (f Fill) ToPosition() Position {
	return Position{
		ProductCode: f.ProductCode,
		Side:        f.Side,
		Price:       f.Price,
		Size:        f.Size,
		Commission:  f.Commission,
		OpenDate:    f.Date,
	}
}
