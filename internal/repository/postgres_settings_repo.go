package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gitpost/internal/model"
)

// PostgresSettingsRepo はPostgreSQLを使用した設定リポジトリ。
// 設定は常にid=1の単一行として保存する。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

var _ SettingsRepository = (*PostgresSettingsRepo)(nil)

// Load は保存済みの設定を読み込む。行が存在しない場合はデフォルト設定を返す。
func (r *PostgresSettingsRepo) Load(ctx context.Context) (model.Settings, error) {
	var s model.Settings

	err := r.db.QueryRowContext(ctx,
		`SELECT fb_page_id, fb_access_token, auto_post_enabled, is_connected, language_style
		 FROM settings WHERE id = 1`,
	).Scan(&s.FBPageID, &s.FBAccessToken, &s.AutoPostEnabled, &s.IsConnected, &s.LanguageStyle)

	if err == sql.ErrNoRows {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	return s, nil
}

// Save は設定を単一行にUPSERTする。
func (r *PostgresSettingsRepo) Save(ctx context.Context, settings model.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (id, fb_page_id, fb_access_token, auto_post_enabled, is_connected, language_style, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, now())
		 ON CONFLICT (id) DO UPDATE SET
		    fb_page_id = EXCLUDED.fb_page_id,
		    fb_access_token = EXCLUDED.fb_access_token,
		    auto_post_enabled = EXCLUDED.auto_post_enabled,
		    is_connected = EXCLUDED.is_connected,
		    language_style = EXCLUDED.language_style,
		    updated_at = now()`,
		settings.FBPageID, settings.FBAccessToken,
		settings.AutoPostEnabled, settings.IsConnected, settings.LanguageStyle,
	)
	if err != nil {
		return fmt.Errorf("設定の保存に失敗しました: %w", err)
	}
	return nil
}
