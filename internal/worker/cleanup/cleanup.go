// Package cleanup は期限切れの確認コードを定期的に消去するジョブを提供する。
// 有効期限から保持期間（デフォルト7日）を過ぎた未確認ユーザーの確認コードを消去する。
// 消去後のユーザーは確認コードの再送で確認をやり直せる。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultGracePeriod は有効期限切れの確認コードを残しておく期間。
const DefaultGracePeriod = 7 * 24 * time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// VerificationCodeJob は期限切れの確認コードを消去するジョブ。
// 何度実行しても結果は変わらない。
type VerificationCodeJob struct {
	db          Executor
	logger      *slog.Logger
	GracePeriod time.Duration
	now         func() time.Time
}

// NewVerificationCodeJob は新しいVerificationCodeJobを生成する。
func NewVerificationCodeJob(db Executor, logger *slog.Logger) *VerificationCodeJob {
	return &VerificationCodeJob{
		db:          db,
		logger:      logger,
		GracePeriod: DefaultGracePeriod,
		now:         time.Now,
	}
}

const clearExpiredCodesQuery = `
UPDATE users
SET verification_code_hash = NULL, verification_expires_at = NULL, updated_at = now()
WHERE is_verified = false
  AND verification_expires_at IS NOT NULL
  AND verification_expires_at < $1`

// Run は保持期間を過ぎた確認コードを消去する。
func (j *VerificationCodeJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.GracePeriod)

	result, err := j.db.ExecContext(ctx, clearExpiredCodesQuery, cutoff)
	if err != nil {
		j.logger.Error("verification code cleanup failed",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("failed to clear expired verification codes: %w", err)
	}

	cleared, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("verification code cleanup failed to read cleared count",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("failed to read cleared count: %w", err)
	}

	j.logger.Info("verification code cleanup completed",
		slog.Int64("cleared_count", cleared),
		slog.Time("cutoff", cutoff),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Start は起動直後に1回、以後interval毎にRunを実行する。ctxがキャンセルされるまでブロックする。
// 失敗はログに残して次回の実行を待つ。
func (j *VerificationCodeJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = j.Run(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
