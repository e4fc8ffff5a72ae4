// Package autopost はスケジュール済み下書きの自動投稿ジョブを提供する。
// 一定間隔で投稿時間帯に入った下書きを確認し、自動投稿が有効な場合のみ公開する。
package autopost

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/gitpost/internal/model"
	"github.com/hitoshi/gitpost/internal/repository"
)

// PublishService は時間帯に入った下書きの公開インターフェース。
type PublishService interface {
	// PublishDue は投稿時間帯に入った未投稿の下書きを公開し、公開件数を返す。
	PublishDue(ctx context.Context, now time.Time) (int, error)
}

// Job は自動投稿のバックグラウンドジョブ。
type Job struct {
	service      PublishService
	settingsRepo repository.SettingsRepository
	logger       *slog.Logger
	now          func() time.Time
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(service PublishService, settingsRepo repository.SettingsRepository, logger *slog.Logger) *Job {
	return &Job{
		service:      service,
		settingsRepo: settingsRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Start は指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("自動投稿ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("自動投稿サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("自動投稿ジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("自動投稿サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は自動投稿サイクルを1回実行する。
// 自動投稿が無効な場合と、ほかの操作が進行中の場合はスキップする。
func (j *Job) RunOnce(ctx context.Context) error {
	current, err := j.settingsRepo.Load(ctx)
	if err != nil {
		return err
	}
	if !current.AutoPostEnabled {
		return nil
	}

	published, err := j.service.PublishDue(ctx, j.now())
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case model.ErrCodeOperationInProgress:
				j.logger.Info("ほかの操作が進行中のため自動投稿をスキップします")
				return nil
			case model.ErrCodeNotConfigured:
				j.logger.Warn("Facebook接続が未設定のため自動投稿をスキップします")
				return nil
			}
		}
		return err
	}

	if published > 0 {
		j.logger.Info("自動投稿サイクルが完了しました",
			slog.Int("published", published),
		)
	}
	return nil
}
