// Package journal 把成交流水写入本地 sqlite，供控制面查询已实现盈亏
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/betbot/flyerbot/internal/domain"
)

// Execution 一条成交记录
type Execution struct {
	ID                     int64       `json:"id"`
	ChildOrderAcceptanceID string      `json:"child_order_acceptance_id"`
	ProductCode            string      `json:"product_code"`
	Side                   domain.Side `json:"side"`
	Price                  float64     `json:"price"`
	Size                   float64     `json:"size"`
	Commission             float64     `json:"commission"`
	RealizedPnL            float64     `json:"realized_pnl"`
	ExecutedAt             time.Time   `json:"executed_at"`
}

// Journal sqlite 成交流水
type Journal struct {
	db *sql.DB
}

// Open 打开（必要时创建）数据库并迁移表结构
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS executions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  child_order_acceptance_id TEXT NOT NULL,
  product_code TEXT NOT NULL,
  side TEXT NOT NULL,
  price REAL NOT NULL,
  size REAL NOT NULL,
  commission REAL NOT NULL DEFAULT 0,
  realized_pnl REAL NOT NULL DEFAULT 0,
  executed_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record 写入一条成交
func (j *Journal) Record(ctx context.Context, e Execution) error {
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO executions (child_order_acceptance_id, product_code, side, price, size, commission, realized_pnl, executed_at)
VALUES (?,?,?,?,?,?,?,?)
`, e.ChildOrderAcceptanceID, e.ProductCode, string(e.Side), e.Price, e.Size, e.Commission, e.RealizedPnL,
		e.ExecutedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// Recent 最近的成交，新的在前
func (j *Journal) Recent(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, child_order_acceptance_id, product_code, side, price, size, commission, realized_pnl, executed_at
FROM executions
ORDER BY executed_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Execution, 0)
	for rows.Next() {
		var (
			e    Execution
			side string
			ts   string
		)
		if err := rows.Scan(&e.ID, &e.ChildOrderAcceptanceID, &e.ProductCode, &side, &e.Price, &e.Size,
			&e.Commission, &e.RealizedPnL, &ts); err != nil {
			return nil, err
		}
		e.Side = domain.Side(side)
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.ExecutedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RealizedPnL 全部成交的已实现盈亏合计
func (j *Journal) RealizedPnL(ctx context.Context) (float64, error) {
	row := j.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(realized_pnl), 0) FROM executions`)
	var v float64
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}
