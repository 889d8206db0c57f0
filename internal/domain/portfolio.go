package domain

// Balance 资产余额
type Balance struct {
	CurrencyCode string  `json:"currency_code"`
	Amount       float64 `json:"amount"`
	Available    float64 `json:"available"`
}

// Collateral 证据金
type Collateral struct {
	Collateral        float64 `json:"collateral"`
	OpenPositionPnL   float64 `json:"open_position_pnl"`
	RequireCollateral float64 `json:"require_collateral"`
	KeepRate          float64 `json:"keep_rate"`
}

// PortfolioSnapshot 账户快照，每次 sync 整体替换
type PortfolioSnapshot struct {
	LegalAmount      float64 `json:"legal_amount"`
	CryptoAmount     float64 `json:"crypto_amount"`
	CollateralAmount float64 `json:"collateral_amount"`
}
