// Package store persists the history of analysis runs in SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/custvalue-cli/internal/config"
	"github.com/sells-group/custvalue-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Command      string          `json:"command,omitempty"`
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
}

// DefaultListLimit caps ListRuns when the filter sets no limit.
const DefaultListLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store records run history.
type Store interface {
	CreateRun(ctx context.Context, id, command string, params map[string]string) (*model.Run, error)
	FinishRun(ctx context.Context, id string, status model.RunStatus, result *model.RunResult) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver. It returns nil, nil when
// run tracking is disabled.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.StoreNone:
		return nil, nil
	case config.DriverSQLite:
		return NewSQLite(cfg.DatabaseURL)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL)
	}
	return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
}

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = eris.New("store: run not found")
