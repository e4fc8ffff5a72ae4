// Package model はドメインモデルを定義する。
package model

// Project はAIリサーチで発見されたGitHubリポジトリのメタデータを表す。
// Researchクライアントから取得された後は変更されない。
type Project struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Stars       string `json:"stars"`
	Topic       string `json:"topic"`
	License     string `json:"license"`
}

// GeneratedContent はAIが生成した投稿素材を表す。
// バッチ生成のレスポンスはProject配列と位置的に対応する。
type GeneratedContent struct {
	PainPoint   string `json:"painPoint"`
	Solution    string `json:"solution"`
	PostContent string `json:"postContent"`
}

// SingleResult は単一リポジトリのリサーチ＋生成を1回で行った結果を表す。
type SingleResult struct {
	Project     Project `json:"project"`
	PainPoint   string  `json:"painPoint"`
	Solution    string  `json:"solution"`
	PostContent string  `json:"postContent"`
}
