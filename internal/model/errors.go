// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: config, validation, research, publish, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotConfigured       = "NOT_CONFIGURED"
	ErrCodeInvalidRepoURL      = "INVALID_REPO_URL"
	ErrCodeNoResults           = "NO_RESULTS"
	ErrCodeGenerationFailed    = "GENERATION_FAILED"
	ErrCodePublishFailed       = "PUBLISH_FAILED"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeDraftNotFound       = "DRAFT_NOT_FOUND"
	ErrCodeAlreadyPosted       = "ALREADY_POSTED"
	ErrCodeOperationInProgress = "OPERATION_IN_PROGRESS"
	ErrCodeInvalidSlot         = "INVALID_SLOT"
	ErrCodeInvalidDate         = "INVALID_DATE"
	ErrCodeInvalidStyle        = "INVALID_STYLE"
	ErrCodeConnectFailed       = "CONNECT_FAILED"
)

// NewNotConfiguredError は設定不備エラーを生成する。
// 準備チェックで検出された全ての不足項目をまとめて報告する。
func NewNotConfiguredError(reasons []string) *APIError {
	return &APIError{
		Code:     ErrCodeNotConfigured,
		Message:  fmt.Sprintf("投稿を開始できません: %s", strings.Join(reasons, "、")),
		Category: "config",
		Action:   "設定画面でFacebookページとの接続を完了してください。",
	}
}

// NewInvalidRepoURLError は無効なリポジトリURLエラーを生成する。
func NewInvalidRepoURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRepoURL,
		Message:  fmt.Sprintf("無効なGitHub URLです: %s", reason),
		Category: "validation",
		Action:   "https://github.com/owner/repo 形式のURLを入力してください。",
	}
}

// NewNoResultsError はリサーチ結果が空だった場合のエラーを生成する。
func NewNoResultsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoResults,
		Message:  "注目すべきプロジェクトが見つかりませんでした。",
		Category: "research",
		Action:   "しばらく待ってから再度リサーチを実行してください。",
	}
}

// NewGenerationFailedError はAI呼び出し自体が失敗した場合のエラーを生成する。
func NewGenerationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeGenerationFailed,
		Message:  fmt.Sprintf("コンテンツの生成に失敗しました: %s", reason),
		Category: "research",
		Action:   "APIキーとクォータを確認し、再度お試しください。",
	}
}

// NewPublishFailedError は投稿先が失敗を報告した場合の汎用エラーを生成する。
func NewPublishFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePublishFailed,
		Message:  fmt.Sprintf("Facebookへの投稿に失敗しました: %s", reason),
		Category: "publish",
		Action:   "接続状態を確認し、再度お試しください。",
	}
}

// NewTokenExpiredError はアクセストークン失効エラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "アクセストークンが失効しているか、セッションが終了しています。",
		Category: "publish",
		Action:   "Facebookに再接続してください。",
	}
}

// NewPermissionDeniedError は投稿権限エラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  "ページへの投稿権限がありません。",
		Category: "publish",
		Action:   "ページの管理権限とアプリのパーミッションを確認してください。",
	}
}

// NewDraftNotFoundError は下書き未検出エラーを生成する。
func NewDraftNotFoundError(draftID string) *APIError {
	return &APIError{
		Code:     ErrCodeDraftNotFound,
		Message:  fmt.Sprintf("指定された下書きが見つかりません: %s", draftID),
		Category: "validation",
		Action:   "下書きIDを確認してください。",
	}
}

// NewAlreadyPostedError は投稿済み下書きへの再投稿エラーを生成する。
func NewAlreadyPostedError(draftID string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyPosted,
		Message:  fmt.Sprintf("この下書きはすでに投稿済みです: %s", draftID),
		Category: "validation",
		Action:   "未投稿の下書きを選択してください。",
	}
}

// NewOperationInProgressError は操作の多重実行エラーを生成する。
// オーケストレーション操作は同時に1つしか実行できない。
func NewOperationInProgressError(current string) *APIError {
	return &APIError{
		Code:     ErrCodeOperationInProgress,
		Message:  fmt.Sprintf("別の操作が実行中です: %s", current),
		Category: "validation",
		Action:   "実行中の操作が完了するまでお待ちください。",
	}
}

// NewInvalidSlotError は無効なスロット値エラーを生成する。
func NewInvalidSlotError(slot string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSlot,
		Message:  fmt.Sprintf("無効な時間帯です: %s", slot),
		Category: "validation",
		Action:   "時間帯には4つの固定レンジのいずれかを指定してください。",
	}
}

// NewInvalidDateError は無効な日付エラーを生成する。
func NewInvalidDateError(date string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", date),
		Category: "validation",
		Action:   "日付はYYYY-MM-DD形式で指定してください。",
	}
}

// NewInvalidStyleError は無効な文体エラーを生成する。
func NewInvalidStyleError(style string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStyle,
		Message:  fmt.Sprintf("無効な文体です: %s", style),
		Category: "validation",
		Action:   "thai-only、thai-english-mix、eastern-thai-mix のいずれかを指定してください。",
	}
}

// NewConnectFailedError はFacebook接続検証の失敗エラーを生成する。
func NewConnectFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeConnectFailed,
		Message:  fmt.Sprintf("Facebookとの接続検証に失敗しました: %s", reason),
		Category: "config",
		Action:   "Page IDとアクセストークンを確認してください。",
	}
}
