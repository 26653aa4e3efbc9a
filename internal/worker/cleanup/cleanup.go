// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// FindByIDは期限切れセッションを返さないため、削除はテーブルの肥大化を防ぐためだけに行う。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// deleteExpiredSessionsQuery は猶予期間を過ぎた期限切れセッションを削除する。
const deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at < now() - $1::interval`

// CleanupJob は期限切れセッションの削除ジョブ。冪等に何度実行してもよい。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
	// Grace は期限切れから削除までの猶予（デフォルト: 0）
	Grace time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{db: db, logger: logger}
}

// Run は期限切れセッションを1回削除する。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	grace := fmt.Sprintf("%d seconds", int64(j.Grace/time.Second))

	result, err := j.db.ExecContext(ctx, deleteExpiredSessionsQuery, grace)
	if err != nil {
		j.logger.Error("session cleanup failed",
			slog.String("error", err.Error()),
			slog.String("grace", grace),
		)
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("failed to read deleted session count",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to read deleted session count: %w", err)
	}

	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deletedCount),
		slog.String("grace", grace),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。ctxのキャンセルで戻る。
// 1回の失敗はログに残して次の周期で再試行する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
