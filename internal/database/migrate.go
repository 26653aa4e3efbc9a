// Package database はPostgreSQL接続プールとスキーママイグレーションを提供する。
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Status は適用済みスキーマの状態。Versionが0かつDirtyがfalseなら未適用。
type Status struct {
	Version uint
	Dirty   bool
}

// NewMigrator は埋め込みSQLをソースにしたmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations は未適用のマイグレーションをすべて適用する。最新なら何もしない。
func RunMigrations(databaseURL string) error {
	_, err := Migrate(databaseURL, 0, nil)
	return err
}

// Migrate はstepsに従ってスキーマを移行し、移行後の状態を返す。
// steps == 0 は最新まで適用、負数はその数だけロールバックする。
// loggerを渡すとmigrateの進捗ログをslogへ流す。
func Migrate(databaseURL string, steps int, logger *slog.Logger) (Status, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return Status{}, err
	}
	defer m.Close()

	if logger != nil {
		m.Log = migrateLogger{logger: logger}
	}

	if steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Status{}, fmt.Errorf("failed to run migrations: %w", err)
	}

	return currentStatus(m)
}

// CurrentStatus はスキーマを変更せずに適用済みバージョンを返す。
func CurrentStatus(databaseURL string) (Status, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return Status{}, err
	}
	defer m.Close()

	return currentStatus(m)
}

func currentStatus(m *migrate.Migrate) (Status, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// migrateLogger はmigrate.Loggerをslogに橋渡しする。
type migrateLogger struct {
	logger *slog.Logger
}

var _ migrate.Logger = migrateLogger{}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info("migrate: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}
