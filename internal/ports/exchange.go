package ports

import (
	"context"

	"github.com/betbot/flyerbot/internal/domain"
)

// OrderReader 订单快照
type OrderReader interface {
	GetOrders(ctx context.Context, productCode string, filter domain.OrderFilter) ([]domain.Order, error)
}

// PositionReader 持仓快照
type PositionReader interface {
	GetPositions(ctx context.Context, productCode string) ([]domain.Position, error)
}

// AccountReader 余额与证据金
type AccountReader interface {
	GetBalance(ctx context.Context) ([]domain.Balance, error)
	GetCollateral(ctx context.Context) (domain.Collateral, error)
}

// BoardStateReader 交易所健康状态
type BoardStateReader interface {
	GetBoardState(ctx context.Context, productCode string) (domain.BoardState, error)
}

// OrderPlacer 下单与撤单
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error)
	CancelOrder(ctx context.Context, req domain.CancelRequest) error
}

// ExchangeClient 交易所 REST 客户端的完整能力
type ExchangeClient interface {
	OrderReader
	PositionReader
	AccountReader
	BoardStateReader
	OrderPlacer
}
