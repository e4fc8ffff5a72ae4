// Package settings は投稿設定と接続状態の管理ロジックを提供する。
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/gitpost/internal/model"
	"github.com/hitoshi/gitpost/internal/repository"
)

// ConnectionVerifier はFacebookページへの接続を検証する。
type ConnectionVerifier interface {
	VerifyConnection(ctx context.Context, pageID, accessToken string) (bool, error)
}

// Service は投稿設定のサービス層。
// 設定の読み書き、接続検証、投稿可否の判定を提供する。
type Service struct {
	repo     repository.SettingsRepository
	verifier ConnectionVerifier
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.SettingsRepository, verifier ConnectionVerifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		verifier: verifier,
		logger:   logger,
	}
}

// Load は現在の設定を返す。保存された設定がなければ既定値を返す。
func (s *Service) Load(ctx context.Context) (model.Settings, error) {
	settings, err := s.repo.Load(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	return settings, nil
}

// Update は設定を検証して保存する。
// 接続状態は接続検証を通してのみ変わるため、ここでは維持する。
// ただしページIDまたはアクセストークンが変更された場合、
// 既存の接続状態は信頼できないため未接続に戻す。
func (s *Service) Update(ctx context.Context, updated model.Settings) (model.Settings, error) {
	if !updated.LanguageStyle.IsValid() {
		return model.Settings{}, model.NewInvalidStyleError(string(updated.LanguageStyle))
	}

	current, err := s.repo.Load(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	updated.IsConnected = current.IsConnected
	if updated.FBPageID != current.FBPageID || updated.FBAccessToken != current.FBAccessToken {
		updated.IsConnected = false
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		return model.Settings{}, fmt.Errorf("設定の保存に失敗しました: %w", err)
	}

	s.logger.Info("設定を更新しました",
		slog.String("language_style", string(updated.LanguageStyle)),
		slog.Bool("auto_post_enabled", updated.AutoPostEnabled),
		slog.Bool("is_connected", updated.IsConnected),
	)
	return updated, nil
}

// Connect は保存済みの認証情報でFacebookページへの接続を検証し、
// 成功すれば接続済みとして保存する。
func (s *Service) Connect(ctx context.Context) (model.Settings, error) {
	settings, err := s.repo.Load(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	if reasons := missingCredentials(settings); len(reasons) > 0 {
		return model.Settings{}, model.NewNotConfiguredError(reasons)
	}

	ok, err := s.verifier.VerifyConnection(ctx, settings.FBPageID, settings.FBAccessToken)
	if err != nil {
		return model.Settings{}, model.NewConnectFailedError(err.Error())
	}
	if !ok {
		return model.Settings{}, model.NewConnectFailedError("認証情報が無効です")
	}

	settings.IsConnected = true
	if err := s.repo.Save(ctx, settings); err != nil {
		return model.Settings{}, fmt.Errorf("設定の保存に失敗しました: %w", err)
	}

	s.logger.Info("Facebookページに接続しました", slog.String("page_id", settings.FBPageID))
	return settings, nil
}

// Disconnect は接続を解除し、保存済みの認証情報も破棄して保存する。
func (s *Service) Disconnect(ctx context.Context) (model.Settings, error) {
	settings, err := s.repo.Load(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	settings.IsConnected = false
	settings.FBPageID = ""
	settings.FBAccessToken = ""
	if err := s.repo.Save(ctx, settings); err != nil {
		return model.Settings{}, fmt.Errorf("設定の保存に失敗しました: %w", err)
	}

	s.logger.Info("Facebookページとの接続を解除しました")
	return settings, nil
}

// CheckReadiness は公開操作を開始できない理由の一覧を返す。
// 空スライスなら公開可能。理由は独立して判定され、すべて返される。
// アクセストークンの有無はここでは見ず、公開境界で検証する。
func CheckReadiness(settings model.Settings) []string {
	var reasons []string
	if !settings.IsConnected {
		reasons = append(reasons, "Facebookページと未接続です")
	}
	if settings.FBPageID == "" {
		reasons = append(reasons, "Page IDが未設定です")
	}
	return reasons
}

// missingCredentials は不足している認証情報の一覧を返す。
func missingCredentials(settings model.Settings) []string {
	var reasons []string
	if settings.FBPageID == "" {
		reasons = append(reasons, "Page IDが未設定です")
	}
	if settings.FBAccessToken == "" {
		reasons = append(reasons, "アクセストークンが未設定です")
	}
	return reasons
}
