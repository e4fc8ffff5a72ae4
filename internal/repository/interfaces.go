// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/gitpost/internal/model"
)

// DraftRepository は下書きコレクションの永続化インターフェース。
// ストア順（バッチ生成順、手動追加は先頭）を常に保持する。
// 実装はメモリ（デフォルト）とPostgreSQLの2種類がある。
type DraftRepository interface {
	// List は全下書きをストア順で返す。
	List(ctx context.Context) ([]model.Draft, error)

	// FindByID は指定IDの下書きを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Draft, error)

	// ReplaceAll はストアの内容を新しいバッチで完全に置き換える。
	// 以前のスケジュールは残らない。空スライスで全削除になる。
	ReplaceAll(ctx context.Context, drafts []model.Draft) error

	// Prepend は下書きをストアの先頭に追加する。既存の内容は保持される。
	Prepend(ctx context.Context, draft model.Draft) error

	// UpdateFields は編集可能な3フィールド（本文、スロット、日付）のみを置き換える。
	// ID、ステータス、タイムスタンプ、外部投稿IDは変更しない。
	// 更新後の下書きを返す。見つからない場合はnilを返す。
	UpdateFields(ctx context.Context, id, postContent string, slot model.Slot, targetDate string) (*model.Draft, error)

	// MarkPosted は下書きを投稿済みにし、外部投稿IDを記録する。
	MarkPosted(ctx context.Context, id, fbPostID string) error

	// MarkFailed は下書きを失敗状態にする。一括投稿の部分失敗でのみ使用される。
	MarkFailed(ctx context.Context, id string) error

	// Delete は指定IDの下書きを削除する。
	Delete(ctx context.Context, id string) error
}

// SettingsRepository は設定の永続化インターフェース。
// 設定は単一レコードとして保存され、変更のたびに上書きされる。
// 実装はJSONファイル（デフォルト）とPostgreSQLの2種類がある。
type SettingsRepository interface {
	// Load は保存済みの設定を読み込む。
	// 永続化されたデータが存在しない場合はデフォルト設定を返す。
	Load(ctx context.Context) (model.Settings, error)

	// Save は設定を保存する。既存のデータは上書きされる。
	Save(ctx context.Context, settings model.Settings) error
}
