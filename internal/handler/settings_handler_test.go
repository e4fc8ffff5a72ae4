package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/gitpost/internal/model"
)

// mockSettingsService はSettingsServiceInterfaceのモック実装。
type mockSettingsService struct {
	loadFn       func(ctx context.Context) (model.Settings, error)
	updateFn     func(ctx context.Context, updated model.Settings) (model.Settings, error)
	connectFn    func(ctx context.Context) (model.Settings, error)
	disconnectFn func(ctx context.Context) (model.Settings, error)
}

func (m *mockSettingsService) Load(ctx context.Context) (model.Settings, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return model.DefaultSettings(), nil
}

func (m *mockSettingsService) Update(ctx context.Context, updated model.Settings) (model.Settings, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, updated)
	}
	return updated, nil
}

func (m *mockSettingsService) Connect(ctx context.Context) (model.Settings, error) {
	if m.connectFn != nil {
		return m.connectFn(ctx)
	}
	return model.DefaultSettings(), nil
}

func (m *mockSettingsService) Disconnect(ctx context.Context) (model.Settings, error) {
	if m.disconnectFn != nil {
		return m.disconnectFn(ctx)
	}
	return model.DefaultSettings(), nil
}

// --- GET /api/settings テスト ---

func TestSettingsHandler_GetSettings_RedactsAccessToken(t *testing.T) {
	svc := &mockSettingsService{
		loadFn: func(ctx context.Context) (model.Settings, error) {
			return model.Settings{
				FBPageID:        "page-1",
				FBAccessToken:   "secret-token",
				AutoPostEnabled: true,
				IsConnected:     true,
				LanguageStyle:   model.LanguageStyleThaiOnly,
			}, nil
		},
	}
	h := NewSettingsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	w := httptest.NewRecorder()

	h.GetSettings(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	if bytes.Contains(w.Body.Bytes(), []byte("secret-token")) {
		t.Error("access token leaked to response")
	}

	var result settingsResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.FBPageID != "page-1" {
		t.Errorf("fb_page_id = %q, want %q", result.FBPageID, "page-1")
	}
	if !result.HasAccessToken {
		t.Error("has_access_token = false, want true")
	}
	if !result.IsConnected {
		t.Error("is_connected = false, want true")
	}
	if result.LanguageStyle != string(model.LanguageStyleThaiOnly) {
		t.Errorf("language_style = %q, want %q", result.LanguageStyle, model.LanguageStyleThaiOnly)
	}
}

// --- PUT /api/settings テスト ---

func TestSettingsHandler_UpdateSettings_Success(t *testing.T) {
	var gotUpdate model.Settings
	svc := &mockSettingsService{
		updateFn: func(ctx context.Context, updated model.Settings) (model.Settings, error) {
			gotUpdate = updated
			return updated, nil
		},
	}
	h := NewSettingsHandler(svc)

	body := `{"fb_page_id": "page-1", "fb_access_token": "tok-1", "auto_post_enabled": true, "language_style": "thai-only"}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.UpdateSettings(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotUpdate.FBAccessToken != "tok-1" {
		t.Errorf("FBAccessToken = %q, want %q", gotUpdate.FBAccessToken, "tok-1")
	}
	if gotUpdate.LanguageStyle != model.LanguageStyleThaiOnly {
		t.Errorf("LanguageStyle = %q, want %q", gotUpdate.LanguageStyle, model.LanguageStyleThaiOnly)
	}
}

func TestSettingsHandler_UpdateSettings_EmptyToken_KeepsStoredToken(t *testing.T) {
	var gotUpdate model.Settings
	svc := &mockSettingsService{
		loadFn: func(ctx context.Context) (model.Settings, error) {
			return model.Settings{
				FBPageID:      "page-1",
				FBAccessToken: "stored-token",
				LanguageStyle: model.LanguageStyleThaiEnglishMix,
			}, nil
		},
		updateFn: func(ctx context.Context, updated model.Settings) (model.Settings, error) {
			gotUpdate = updated
			return updated, nil
		},
	}
	h := NewSettingsHandler(svc)

	body := `{"fb_page_id": "page-1", "fb_access_token": "", "auto_post_enabled": false, "language_style": "thai-english-mix"}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.UpdateSettings(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	// トークン未指定の更新は保存済みトークンを維持する
	if gotUpdate.FBAccessToken != "stored-token" {
		t.Errorf("FBAccessToken = %q, want %q", gotUpdate.FBAccessToken, "stored-token")
	}
}

func TestSettingsHandler_UpdateSettings_InvalidStyle_ReturnsBadRequest(t *testing.T) {
	svc := &mockSettingsService{
		updateFn: func(ctx context.Context, updated model.Settings) (model.Settings, error) {
			return model.Settings{}, model.NewInvalidStyleError(string(updated.LanguageStyle))
		},
	}
	h := NewSettingsHandler(svc)

	body := `{"fb_page_id": "page-1", "fb_access_token": "tok", "language_style": "pirate"}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.UpdateSettings(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidStyle {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidStyle)
	}
}

func TestSettingsHandler_UpdateSettings_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{})

	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewBufferString(`{invalid`))
	w := httptest.NewRecorder()

	h.UpdateSettings(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- POST /api/settings/connect テスト ---

func TestSettingsHandler_Connect_Success(t *testing.T) {
	svc := &mockSettingsService{
		connectFn: func(ctx context.Context) (model.Settings, error) {
			return model.Settings{
				FBPageID:      "page-1",
				FBAccessToken: "tok",
				IsConnected:   true,
				LanguageStyle: model.LanguageStyleThaiEnglishMix,
			}, nil
		},
	}
	h := NewSettingsHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/settings/connect", nil)
	w := httptest.NewRecorder()

	h.Connect(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result settingsResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.IsConnected {
		t.Error("is_connected = false, want true")
	}
}

func TestSettingsHandler_Connect_MissingCredentials_ReturnsUnprocessable(t *testing.T) {
	svc := &mockSettingsService{
		connectFn: func(ctx context.Context) (model.Settings, error) {
			return model.Settings{}, model.NewNotConfiguredError([]string{"Page IDが未設定です"})
		},
	}
	h := NewSettingsHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/settings/connect", nil)
	w := httptest.NewRecorder()

	h.Connect(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestSettingsHandler_Connect_VerificationFails_ReturnsUnprocessable(t *testing.T) {
	svc := &mockSettingsService{
		connectFn: func(ctx context.Context) (model.Settings, error) {
			return model.Settings{}, model.NewConnectFailedError("認証情報が無効です")
		},
	}
	h := NewSettingsHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/settings/connect", nil)
	w := httptest.NewRecorder()

	h.Connect(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnprocessableEntity)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeConnectFailed {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeConnectFailed)
	}
}

// --- DELETE /api/settings/connect テスト ---

func TestSettingsHandler_Disconnect_Success(t *testing.T) {
	svc := &mockSettingsService{
		disconnectFn: func(ctx context.Context) (model.Settings, error) {
			return model.Settings{
				IsConnected:   false,
				LanguageStyle: model.LanguageStyleThaiEnglishMix,
			}, nil
		},
	}
	h := NewSettingsHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/settings/connect", nil)
	w := httptest.NewRecorder()

	h.Disconnect(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result settingsResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.IsConnected {
		t.Error("is_connected = true, want false")
	}
	// 認証情報が破棄されたことがレスポンスに反映される
	if result.HasAccessToken {
		t.Error("has_access_token = true, want false")
	}
	if result.FBPageID != "" {
		t.Errorf("fb_page_id = %q, want empty", result.FBPageID)
	}
}
