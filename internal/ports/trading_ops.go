package ports

import "context"

// Pausable 可暂停的组件（stream / batch / health check）
type Pausable interface {
	Pause()
	Resume()
	Paused() bool
}

// Syncer 可以从交易所整体重同步的组件
type Syncer interface {
	Sync(ctx context.Context) error
}
