// Package postgres opens the GORM connection shared by the ledger, catalog and user repositories.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool sizes the database/sql pool. Ledger writes hold a connection for the whole
// transaction, including the advisory lock wait, so the pool bounds concurrent submissions.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
}

// DefaultPool is used when no POSTGRES_* pool variables are set.
var DefaultPool = Pool{
	MaxOpenConns:    20,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
	SlowQuery:       200 * time.Millisecond,
}

// PoolFromEnv overlays POSTGRES_MAX_OPEN_CONNS, POSTGRES_MAX_IDLE_CONNS,
// POSTGRES_CONN_MAX_LIFETIME and POSTGRES_SLOW_QUERY on DefaultPool.
func PoolFromEnv() (Pool, error) {
	pool := DefaultPool
	for key, dst := range map[string]*int{
		"POSTGRES_MAX_OPEN_CONNS": &pool.MaxOpenConns,
		"POSTGRES_MAX_IDLE_CONNS": &pool.MaxIdleConns,
	} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return Pool{}, fmt.Errorf("%s must be a positive integer", key)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*time.Duration{
		"POSTGRES_CONN_MAX_LIFETIME": &pool.ConnMaxLifetime,
		"POSTGRES_SLOW_QUERY":        &pool.SlowQuery,
	} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 {
				return Pool{}, fmt.Errorf("%s must be a positive duration", key)
			}
			*dst = d
		}
	}
	if pool.MaxIdleConns > pool.MaxOpenConns {
		pool.MaxIdleConns = pool.MaxOpenConns
	}
	return pool, nil
}

// Connect opens a PostgreSQL connection via GORM and verifies connectivity. Unique
// violations surface as gorm.ErrDuplicatedKey, which the repositories map to their own conflicts.
func Connect(ctx context.Context, dsn string, pool Pool, logger *slog.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newQueryLogger(logger, pool.SlowQuery),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Open connects and returns a cleanup that closes the pool. Failures are logged and
// reported as a nil DB so callers can fall back to in-memory repositories.
func Open(ctx context.Context, dsn string, pool Pool, logger *slog.Logger) (*gorm.DB, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(dsn) == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory repositories")
		return nil, func() {}
	}
	db, err := Connect(ctx, dsn, pool, logger)
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to in-memory repositories", slog.String("error", err.Error()))
		return nil, func() {}
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("failed to unwrap postgres connection, falling back to in-memory repositories", slog.String("error", err.Error()))
		return nil, func() {}
	}
	logger.Info("postgres connection established", slog.Int("pool.max_open", pool.MaxOpenConns))
	return db, func() { _ = sqlDB.Close() }
}

// slogWriter feeds GORM's slow-query and error lines into slog.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), slog.String("component", "gorm"))
}

func newQueryLogger(logger *slog.Logger, slow time.Duration) gormlogger.Interface {
	if logger == nil {
		logger = slog.Default()
	}
	return gormlogger.New(slogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}
