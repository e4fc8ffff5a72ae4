// Package model はドメインモデルを定義する。
package model

// LanguageStyle は投稿文の言語・文体を表す。
// 生成クライアントにそのまま渡されるプロンプト選択子であり、コアはその中身に関知しない。
type LanguageStyle string

const (
	// LanguageStyleThaiOnly はタイ語のみの文体。
	LanguageStyleThaiOnly LanguageStyle = "thai-only"
	// LanguageStyleThaiEnglishMix はタイ語と英語を混ぜた文体（デフォルト）。
	LanguageStyleThaiEnglishMix LanguageStyle = "thai-english-mix"
	// LanguageStyleEasternThaiMix は東部タイ方言と英語を混ぜた文体。
	LanguageStyleEasternThaiMix LanguageStyle = "eastern-thai-mix"
)

// IsValid は文体が定義済みのいずれかであるかを検証する。
func (s LanguageStyle) IsValid() bool {
	switch s {
	case LanguageStyleThaiOnly, LanguageStyleThaiEnglishMix, LanguageStyleEasternThaiMix:
		return true
	}
	return false
}

// Settings はプロセス全体の設定を表す。
// 永続ストレージから起動時に読み込まれ、変更のたびに保存される。
type Settings struct {
	FBPageID        string        `json:"fb_page_id"`
	FBAccessToken   string        `json:"fb_access_token"`
	AutoPostEnabled bool          `json:"auto_post_enabled"`
	IsConnected     bool          `json:"is_connected"`
	LanguageStyle   LanguageStyle `json:"language_style"`
}

// DefaultSettings は永続化されたデータが存在しない場合の初期設定を返す。
func DefaultSettings() Settings {
	return Settings{
		FBPageID:        "",
		FBAccessToken:   "",
		AutoPostEnabled: false,
		IsConnected:     false,
		LanguageStyle:   LanguageStyleThaiEnglishMix,
	}
}
