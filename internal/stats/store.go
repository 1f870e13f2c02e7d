// internal/stats/store.go
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// Row is one telemetry sample kept for later analysis.
type Row struct {
	At       float64 // capture time, seconds since epoch
	Speed    float64 // airspeed, knots
	Altitude float64 // feet
}

type Config struct {
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

// Store is an append-only telemetry log in SQLite WAL mode: one writer,
// any number of concurrent readers.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string

	closeOnce sync.Once
	closeErr  error
}

const schema = `
CREATE TABLE IF NOT EXISTS telemetry (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	at       REAL NOT NULL,
	speed    REAL NOT NULL,
	altitude REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS telemetry_at ON telemetry (at);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Open opens or creates the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, &fault.ConfigError{Reason: "stats: path is required"}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, &SinkError{Op: "open " + cfg.Path, Err: err}
	}

	s := &Store{
		pool:   pool,
		logger: logger.With("component", "stats", "path", cfg.Path),
		path:   cfg.Path,
	}

	// create the schema now so the first Append does not race a reader
	conn, err := s.take(context.Background())
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	s.pool.Put(conn)

	s.logger.Info("store opened", "pool_size", poolSize)
	return s, nil
}

func prepareConn(conn *sqlite.Conn) error {
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			return fmt.Errorf("stats: %s: %w", p, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("stats: schema: %w", err)
	}
	return nil
}

func (s *Store) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, &SinkError{Op: "take", Err: err}
	}
	return conn, nil
}

// Append adds one row.
func (s *Store) Append(ctx context.Context, r Row) error {
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO telemetry (at, speed, altitude) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{r.At, r.Speed, r.Altitude}})
	if err != nil {
		return &SinkError{Op: "append", Err: err}
	}
	return nil
}

// Rows returns rows captured at or after since, oldest first.
// limit <= 0 returns everything.
func (s *Store) Rows(ctx context.Context, since float64, limit int) ([]Row, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	if limit <= 0 {
		limit = -1
	}

	var out []Row
	err = sqlitex.Execute(conn,
		"SELECT at, speed, altitude FROM telemetry WHERE at >= ? ORDER BY id LIMIT ?",
		&sqlitex.ExecOptions{
			Args: []any{since, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, Row{
					At:       stmt.ColumnFloat(0),
					Speed:    stmt.ColumnFloat(1),
					Altitude: stmt.ColumnFloat(2),
				})
				return nil
			},
		})
	if err != nil {
		return nil, &SinkError{Op: "rows", Err: err}
	}
	return out, nil
}

// Close waits for borrowed connections and closes the pool.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if err := s.pool.Close(); err != nil {
			s.closeErr = &SinkError{Op: "close", Err: err}
			return
		}
		s.logger.Info("store closed")
	})
	return s.closeErr
}

// SinkError wraps a storage failure. The store is reopened by its adapter.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string { return fmt.Sprintf("stats: %s: %v", e.Op, e.Err) }

func (e *SinkError) Unwrap() error { return e.Err }

func (e *SinkError) Class() fault.Class { return fault.Transport }
