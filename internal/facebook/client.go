// Package facebook はFacebook Graph APIによるページ投稿機能を提供する。
// ページフィードへの投稿と接続検証を含む。
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/gitpost/internal/model"
)

const (
	// defaultEndpoint はGraph APIのベースエンドポイント。
	defaultEndpoint = "https://graph.facebook.com"
	// graphVersion は使用するGraph APIのバージョン。
	graphVersion = "v21.0"

	// errCodeTokenExpired はGraph APIのトークン失効エラーコード。
	errCodeTokenExpired = 190
	// errCodePermission はGraph APIの権限不足エラーコード。
	errCodePermission = 200
)

// Client はFacebook Graph APIのクライアント。
// ページフィードへの投稿エンドポイントを使用する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// graphError はGraph APIのエラーレスポンス本体。
type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// feedResponse はフィード投稿APIのレスポンス。
type feedResponse struct {
	ID    string      `json:"id"`
	Error *graphError `json:"error"`
}

// PostToPage はページフィードにメッセージとリンクを投稿し、外部投稿IDを返す。
// Graph APIのエラーコードを検査し、トークン失効（190）と権限不足（200）は
// 汎用の投稿失敗と区別したエラーとして返す。
func (c *Client) PostToPage(ctx context.Context, pageID, accessToken, message, link string) (string, error) {
	if pageID == "" || accessToken == "" {
		return "", model.NewNotConfiguredError([]string{"Facebook Page IDまたはAccess Tokenが未設定です"})
	}

	reqURL := fmt.Sprintf("%s/%s/%s/feed", c.endpoint, graphVersion, url.PathEscape(pageID))

	params := url.Values{}
	params.Set("message", message)
	params.Set("link", link)
	params.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Graph APIの呼び出しに失敗しました",
			slog.String("page_id", pageID),
			slog.String("error", err.Error()),
		)
		return "", model.NewPublishFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result feedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("Graph APIレスポンスのパースに失敗しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return "", model.NewPublishFailedError(fmt.Sprintf("レスポンスを解釈できません (HTTP %d)", resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		return "", c.classifyError(resp.StatusCode, result.Error)
	}

	if result.ID == "" {
		return "", model.NewPublishFailedError("投稿IDが返されませんでした")
	}

	return result.ID, nil
}

// classifyError はGraph APIのエラーコードをエラータクソノミーへ対応付ける。
func (c *Client) classifyError(statusCode int, gerr *graphError) *model.APIError {
	if gerr == nil {
		return model.NewPublishFailedError(fmt.Sprintf("HTTP %d", statusCode))
	}

	c.logger.Warn("Graph APIがエラーを返しました",
		slog.Int("http_status", statusCode),
		slog.Int("fb_code", gerr.Code),
		slog.String("fb_message", gerr.Message),
	)

	switch gerr.Code {
	case errCodeTokenExpired:
		return model.NewTokenExpiredError()
	case errCodePermission:
		return model.NewPermissionDeniedError()
	}
	return model.NewPublishFailedError(gerr.Message)
}

// meResponse は/meエンドポイントのレスポンス。
type meResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Error *graphError `json:"error"`
}

// VerifyConnection はアクセストークンとページIDの組み合わせが有効かを検証する。
// /meエンドポイントへの照会が成功すればtrueを返す。
func (c *Client) VerifyConnection(ctx context.Context, pageID, accessToken string) (bool, error) {
	if pageID == "" || accessToken == "" {
		return false, nil
	}

	reqURL := fmt.Sprintf("%s/%s/me?access_token=%s", c.endpoint, graphVersion, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, model.NewConnectFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result meResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, model.NewConnectFailedError(fmt.Sprintf("レスポンスを解釈できません (HTTP %d)", resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		c.logger.Warn("接続検証に失敗しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return false, nil
	}

	return result.ID != "", nil
}
