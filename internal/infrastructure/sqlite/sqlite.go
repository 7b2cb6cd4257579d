package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const busyTimeout = 5 * time.Second

// Open opens the SQLite database at path, applying the embedded migrations
// first when migrate is set.
func Open(ctx context.Context, path string, migrate bool, logger *zap.Logger) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	if migrate {
		if err := RunMigrations(path, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	db, err := sql.Open("sqlite", connectionString(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	logger.Info("opened sqlite store", zap.String("path", path))
	return db, nil
}

// RunMigrations applies the embedded schema to the database at path. The
// migration driver closes its handle, so it runs on a dedicated connection.
func RunMigrations(path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", connectionString(path))
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = driver.Close()
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		_ = driver.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, _ := m.Version()
	logger.Info("database migrations applied", zap.String("driver", "sqlite"), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func connectionString(path string) string {
	qs := url.Values{
		"_txlock": []string{"immediate"},
		"_pragma": []string{
			"journal_mode(WAL)",
			"foreign_keys(1)",
			fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()),
		},
	}
	return "file:" + filepath.Clean(path) + "?" + qs.Encode()
}
