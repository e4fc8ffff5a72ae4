package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/gitpost/internal/model"
)

// SettingsServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	// Load は現在の設定を返す。
	Load(ctx context.Context) (model.Settings, error)
	// Update は設定を検証して保存する。
	Update(ctx context.Context, updated model.Settings) (model.Settings, error)
	// Connect はFacebookページへの接続を検証して保存する。
	Connect(ctx context.Context) (model.Settings, error)
	// Disconnect は接続状態を解除する。
	Disconnect(ctx context.Context) (model.Settings, error)
}

// SettingsHandler は投稿設定のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// updateSettingsRequest は設定更新リクエストのボディ。
// fb_access_tokenが空の場合、保存済みのトークンを維持する。
type updateSettingsRequest struct {
	FBPageID        string `json:"fb_page_id"`
	FBAccessToken   string `json:"fb_access_token"`
	AutoPostEnabled bool   `json:"auto_post_enabled"`
	LanguageStyle   string `json:"language_style"`
}

// settingsResponse は設定のAPIレスポンス。
// アクセストークンは応答に含めず、設定済みかどうかのみ返す。
type settingsResponse struct {
	FBPageID        string `json:"fb_page_id"`
	HasAccessToken  bool   `json:"has_access_token"`
	AutoPostEnabled bool   `json:"auto_post_enabled"`
	IsConnected     bool   `json:"is_connected"`
	LanguageStyle   string `json:"language_style"`
}

// GetSettings は現在の設定を返す。
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Load(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSettingsResponse(settings))
}

// UpdateSettings は設定の更新を処理する。
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated := model.Settings{
		FBPageID:        req.FBPageID,
		FBAccessToken:   req.FBAccessToken,
		AutoPostEnabled: req.AutoPostEnabled,
		LanguageStyle:   model.LanguageStyle(req.LanguageStyle),
	}

	// トークンはレスポンスで返さないため、空のままの更新は「変更なし」として扱う
	if req.FBAccessToken == "" {
		current, err := h.service.Load(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}
		updated.FBAccessToken = current.FBAccessToken
	}

	saved, err := h.service.Update(r.Context(), updated)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSettingsResponse(saved))
}

// Connect はFacebookページへの接続検証を処理する。
// POST /api/settings/connect
func (h *SettingsHandler) Connect(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Connect(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSettingsResponse(settings))
}

// Disconnect は接続解除を処理する。
// DELETE /api/settings/connect
func (h *SettingsHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Disconnect(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSettingsResponse(settings))
}

// toSettingsResponse はドメインモデルをAPIレスポンスに変換する。
func toSettingsResponse(s model.Settings) settingsResponse {
	return settingsResponse{
		FBPageID:        s.FBPageID,
		HasAccessToken:  s.FBAccessToken != "",
		AutoPostEnabled: s.AutoPostEnabled,
		IsConnected:     s.IsConnected,
		LanguageStyle:   string(s.LanguageStyle),
	}
}
