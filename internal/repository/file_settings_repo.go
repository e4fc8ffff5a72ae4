package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hitoshi/gitpost/internal/model"
)

// FileSettingsRepo はJSONファイルによる設定リポジトリ。
// データベースを設定しない場合のデフォルト実装。
// 設定変更のたびにファイル全体を書き直す。
type FileSettingsRepo struct {
	mu   sync.Mutex
	path string
}

// NewFileSettingsRepo はFileSettingsRepoを生成する。
// 保存先ディレクトリが存在しない場合は作成する。
func NewFileSettingsRepo(path string) (*FileSettingsRepo, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("設定ディレクトリの作成に失敗しました: %w", err)
	}
	return &FileSettingsRepo{path: path}, nil
}

var _ SettingsRepository = (*FileSettingsRepo)(nil)

// Load は保存済みの設定を読み込む。
// ファイルが存在しない場合はデフォルト設定を返す。
func (r *FileSettingsRepo) Load(ctx context.Context) (model.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return model.Settings{}, fmt.Errorf("設定ファイルのパースに失敗しました: %w", err)
	}
	return settings, nil
}

// Save は設定をファイルに書き込む。
// 一時ファイルに書いてからリネームし、書き込み途中のファイルが残らないようにする。
func (r *FileSettingsRepo) Save(ctx context.Context, settings model.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗しました: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("設定ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}
