// Package gemini はGemini APIによるリサーチとコンテンツ生成のクライアントを提供する。
// リポジトリのリサーチにはGoogle検索ツールを併用し、
// レスポンスはJSONスキーマで構造化して受け取る。
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hitoshi/gitpost/internal/model"
)

const (
	// defaultResearchModel はリサーチ系呼び出しに使用するモデル。
	defaultResearchModel = "gemini-3-pro-preview"
	// defaultGenerateModel はバッチ生成に使用する軽量モデル。
	defaultGenerateModel = "gemini-3-flash-preview"
	// defaultBatchSize は1回のリサーチで発見するリポジトリ数。
	defaultBatchSize = 12
)

// Client はGemini APIのクライアント。
// バッチリサーチ、バッチ生成、単一リポジトリのリサーチ＋生成の3つの呼び出し形を提供する。
type Client struct {
	client        *genai.Client
	logger        *slog.Logger
	researchModel string
	generateModel string
	batchSize     int
}

// NewClient はClientの新しいインスタンスを生成する。
// timeoutはHTTPクライアントに適用され、0以下の場合は無制限になる。
// batchSizeは1回のリサーチで発見するリポジトリ数で、0以下の場合は既定値を使う。
func NewClient(ctx context.Context, apiKey string, logger *slog.Logger, timeout time.Duration, batchSize int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini APIキーが設定されていません")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの初期化に失敗しました: %w", err)
	}

	return &Client{
		client:        client,
		logger:        logger,
		researchModel: defaultResearchModel,
		generateModel: defaultGenerateModel,
		batchSize:     batchSize,
	}, nil
}

// projectSchema はProject 1件分のレスポンススキーマ。
var projectSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":        {Type: genai.TypeString},
		"url":         {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
		"author":      {Type: genai.TypeString},
		"stars":       {Type: genai.TypeString},
		"topic":       {Type: genai.TypeString},
		"license":     {Type: genai.TypeString},
	},
	Required: []string{"name", "url", "description", "author", "license"},
}

// contentSchema は生成された投稿素材1件分のレスポンススキーマ。
var contentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"painPoint":   {Type: genai.TypeString},
		"solution":    {Type: genai.TypeString},
		"postContent": {Type: genai.TypeString},
	},
	Required: []string{"painPoint", "solution", "postContent"},
}

// singleSchema は単一リポジトリのリサーチ＋生成のレスポンススキーマ。
var singleSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"project":     projectSchema,
		"painPoint":   {Type: genai.TypeString},
		"solution":    {Type: genai.TypeString},
		"postContent": {Type: genai.TypeString},
	},
	Required: []string{"project", "painPoint", "solution", "postContent"},
}

// ResearchProjects は注目すべきGitHubリポジトリを一括リサーチする。
// Google検索ツールを使用して実在するリポジトリを発見する。
// モデルが発見できなかった場合は空配列が返ることがあり、その扱いは呼び出し元が決める。
func (c *Client) ResearchProjects(ctx context.Context) ([]model.Project, error) {
	prompt := fmt.Sprintf(
		"Find %d high-quality, trending, or interesting AI, Machine Learning, or Deep Learning repositories on GitHub. "+
			"Include details: project name, URL, author, description, and the LICENSE type (e.g. MIT, Apache 2.0, GPL, or 'Not Specified').",
		c.batchSize,
	)

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: projectSchema,
		},
	}

	text, err := c.generate(ctx, c.researchModel, prompt, config)
	if err != nil {
		return nil, err
	}

	var projects []model.Project
	if err := json.Unmarshal([]byte(cleanJSON(text)), &projects); err != nil {
		c.logger.Error("リサーチレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("リサーチレスポンスのパースに失敗しました: %w", err)
	}

	c.logger.Info("リサーチが完了しました", slog.Int("project_count", len(projects)))
	return projects, nil
}

// GenerateBatchContent はProject配列に対する投稿素材を1回の呼び出しでまとめて生成する。
// 戻り値は入力と位置的に対応するが、入力より短い場合がある。
// 不足分の補完は呼び出し元の責務とする。
func (c *Client) GenerateBatchContent(ctx context.Context, projects []model.Project, style model.LanguageStyle) ([]model.GeneratedContent, error) {
	encoded, err := json.Marshal(projects)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧のシリアライズに失敗しました: %w", err)
	}

	prompt := fmt.Sprintf(`Create Facebook post contents for these %d projects: %s.

Style Requirements:
- Language: %s
- Tone: Casual, friendly, and conversational (แบบคุยกับเพื่อน). Do NOT be formal.
- Spoken Language: Use appropriate particles. If Eastern Thai is selected, use "ฮิ" naturally.

Formatting Requirements:
- Organize into clear paragraphs with double line breaks.
- Structure:
  1. Headline: Use catchy emojis and a "friend-sharing-secret" vibe.
  2. Pain Point (The Story): Start with a relatable frustration.
  3. Solution & Project Intro: Introduce the repo as a cool discovery.
  4. Features & License: Mention what it does and its license.
  5. Call to Action: Friendly closing with URL.

- Ensure high readability for mobile feed users.`,
		len(projects), string(encoded), stylePrompt(style))

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: contentSchema,
		},
	}

	text, err := c.generate(ctx, c.generateModel, prompt, config)
	if err != nil {
		return nil, err
	}

	var contents []model.GeneratedContent
	if err := json.Unmarshal([]byte(cleanJSON(text)), &contents); err != nil {
		c.logger.Error("生成レスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("生成レスポンスのパースに失敗しました: %w", err)
	}

	c.logger.Info("バッチ生成が完了しました",
		slog.Int("requested", len(projects)),
		slog.Int("generated", len(contents)),
	)
	return contents, nil
}

// ResearchAndGenerateSingle は1つのリポジトリURLに対してリサーチと投稿素材の生成を1回で行う。
func (c *Client) ResearchAndGenerateSingle(ctx context.Context, repoURL string, style model.LanguageStyle) (*model.SingleResult, error) {
	prompt := fmt.Sprintf(`Research this GitHub repository: %s.
Then, generate a Facebook post content about it.

Style Requirements:
- Language: %s
- Tone: Casual, friendly, and conversational (แบบคุยกับเพื่อน).
- Spoken Language: Use particles naturally based on the dialect chosen.

Formatting: Clear paragraphs, catchy headline, relatable pain point, solution intro, features/license, and CTA.`,
		repoURL, stylePrompt(style))

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   singleSchema,
	}

	text, err := c.generate(ctx, c.researchModel, prompt, config)
	if err != nil {
		return nil, err
	}

	var result model.SingleResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		c.logger.Error("単一リサーチレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
			slog.String("repo_url", repoURL),
		)
		return nil, fmt.Errorf("単一リサーチレスポンスのパースに失敗しました: %w", err)
	}

	return &result, nil
}

// generate はモデル呼び出しを実行し、先頭候補のテキストを返す。
func (c *Client) generate(ctx context.Context, modelName, prompt string, config *genai.GenerateContentConfig) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), config)
	if err != nil {
		c.logger.Error("Gemini APIの呼び出しに失敗しました",
			slog.String("model", modelName),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("Gemini APIの呼び出しに失敗しました: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini APIが空のレスポンスを返しました")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// stylePrompt は文体選択子をプロンプト上の指示文に変換する。
func stylePrompt(style model.LanguageStyle) string {
	switch style {
	case model.LanguageStyleEasternThaiMix:
		return `Thai (Eastern dialect style like Rayong/Chonburi, e.g., ending with "ฮิ", "นะฮิ") mixed with English technical terms. Tone is super friendly, localized, and coastal.`
	case model.LanguageStyleThaiOnly:
		return "Thai only (natural spoken style)."
	default:
		return "Thai mixed with English (natural tech community slang)."
	}
}

// cleanJSON はモデルがコードフェンスで囲んで返した場合にフェンスを取り除く。
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
