// Package handler はHTTP APIのハンドラーとルーティングを定義する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gitpost/internal/model"
	"github.com/hitoshi/gitpost/internal/post"
)

// PostServiceInterface は下書きハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// BatchResearchAndSchedule はトレンドをリサーチし、下書き一式を生成する。
	BatchResearchAndSchedule(ctx context.Context, targetDate string) ([]model.Draft, error)
	// ManualAddOne は指定リポジトリから下書きを1件生成して先頭に追加する。
	ManualAddOne(ctx context.Context, repoURL, targetDate string) (*model.Draft, error)
	// GetDrafts は全下書きを格納順で返す。
	GetDrafts(ctx context.Context) ([]model.Draft, error)
	// GetDraft はIDで下書きを1件取得する。
	GetDraft(ctx context.Context, id string) (*model.Draft, error)
	// ScheduleView は下書きを時間帯ごとにグループ化して返す。
	ScheduleView(ctx context.Context) (map[model.Slot][]model.Draft, error)
	// UpdateDraft は下書きの本文・時間帯・日付を更新する。
	UpdateDraft(ctx context.Context, id, postContent string, slot model.Slot, targetDate string) (*model.Draft, error)
	// DeleteDraft は下書きを削除する。
	DeleteDraft(ctx context.Context, id string) error
	// SelectDraft は下書きを選択状態にする。
	SelectDraft(ctx context.Context, id string) error
	// PublishOne は下書きを1件Facebookページに投稿する。
	PublishOne(ctx context.Context, id string) (*model.Draft, error)
	// PublishAll は全下書きを順番に投稿する。
	PublishAll(ctx context.Context) ([]model.Draft, error)
	// Status は現在の操作状態を返す。
	Status() post.Status
}

// DraftHandler は下書き管理と投稿のHTTPハンドラー。
type DraftHandler struct {
	service PostServiceInterface
}

// NewDraftHandler はDraftHandlerを生成する。
func NewDraftHandler(service PostServiceInterface) *DraftHandler {
	return &DraftHandler{service: service}
}

// batchScheduleRequest は一括リサーチリクエストのボディ。
type batchScheduleRequest struct {
	TargetDate string `json:"target_date"`
}

// addDraftRequest は手動追加リクエストのボディ。
type addDraftRequest struct {
	RepoURL    string `json:"repo_url"`
	TargetDate string `json:"target_date"`
}

// updateDraftRequest は下書き更新リクエストのボディ。
type updateDraftRequest struct {
	PostContent string `json:"post_content"`
	Slot        string `json:"slot"`
	TargetDate  string `json:"target_date"`
}

// projectResponse はリサーチ済みプロジェクトのAPIレスポンス。
type projectResponse struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Stars       string `json:"stars"`
	Topic       string `json:"topic"`
	License     string `json:"license"`
}

// draftResponse は下書きのAPIレスポンス。
type draftResponse struct {
	ID          string          `json:"id"`
	Project     projectResponse `json:"project"`
	PainPoint   string          `json:"pain_point"`
	Solution    string          `json:"solution"`
	PostContent string          `json:"post_content"`
	CreatedAt   string          `json:"created_at"`
	TargetDate  string          `json:"target_date"`
	Slot        string          `json:"slot"`
	SlotLabel   string          `json:"slot_label"`
	Status      string          `json:"status"`
	FBPostID    string          `json:"fb_post_id,omitempty"`
}

// draftListResponse は下書き一覧のAPIレスポンス。
type draftListResponse struct {
	Drafts []draftResponse `json:"drafts"`
}

// slotGroupResponse は1時間帯分のスケジュールビュー。
type slotGroupResponse struct {
	Slot   string          `json:"slot"`
	Label  string          `json:"label"`
	Drafts []draftResponse `json:"drafts"`
}

// scheduleResponse はスケジュールビュー全体のAPIレスポンス。
// 時間帯は1日の固定順序で並ぶ。
type scheduleResponse struct {
	Slots []slotGroupResponse `json:"slots"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// BatchSchedule はトレンドリサーチと下書き一括生成を処理する。
// POST /api/schedule
func (h *DraftHandler) BatchSchedule(w http.ResponseWriter, r *http.Request) {
	var req batchScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	drafts, err := h.service.BatchResearchAndSchedule(r.Context(), req.TargetDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toDraftListResponse(drafts))
}

// GetSchedule は時間帯ごとのスケジュールビューを返す。
// GET /api/schedule
func (h *DraftHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.service.ScheduleView(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := scheduleResponse{Slots: make([]slotGroupResponse, 0, len(model.Slots))}
	for _, slot := range model.Slots {
		group := slotGroupResponse{
			Slot:   string(slot),
			Label:  slot.Label(),
			Drafts: make([]draftResponse, 0, len(grouped[slot])),
		}
		for _, d := range grouped[slot] {
			group.Drafts = append(group.Drafts, toDraftResponse(&d))
		}
		resp.Slots = append(resp.Slots, group)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListDrafts は全下書きを格納順で返す。
// GET /api/drafts
func (h *DraftHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.service.GetDrafts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDraftListResponse(drafts))
}

// AddDraft は指定リポジトリからの手動追加を処理する。
// POST /api/drafts
func (h *DraftHandler) AddDraft(w http.ResponseWriter, r *http.Request) {
	var req addDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.RepoURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRepoURLError("URLが空です"))
		return
	}

	draft, err := h.service.ManualAddOne(r.Context(), req.RepoURL, req.TargetDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toDraftResponse(draft))
}

// GetDraft は下書き詳細を取得する。
// GET /api/drafts/:id
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	draft, err := h.service.GetDraft(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDraftResponse(draft))
}

// UpdateDraft は下書きの本文・時間帯・日付の更新を処理する。
// PATCH /api/drafts/:id
func (h *DraftHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	draft, err := h.service.UpdateDraft(r.Context(), id, req.PostContent, model.Slot(req.Slot), req.TargetDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDraftResponse(draft))
}

// DeleteDraft は下書きの削除を処理する。
// DELETE /api/drafts/:id
func (h *DraftHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteDraft(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectDraft は下書きの選択を処理する。
// POST /api/drafts/:id/select
func (h *DraftHandler) SelectDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.SelectDraft(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.Status())
}

// PublishDraft は下書き1件の投稿を処理する。
// POST /api/drafts/:id/publish
func (h *DraftHandler) PublishDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	draft, err := h.service.PublishOne(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDraftResponse(draft))
}

// PublishAll は全下書きの一括投稿を処理する。
// 一部の投稿が失敗しても、成功分を反映した一覧を207で返す。
// POST /api/drafts/publish-all
func (h *DraftHandler) PublishAll(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.service.PublishAll(r.Context())
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodePublishFailed && drafts != nil {
			// 部分失敗: 成功分は反映済みなので結果一覧を返す
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusMultiStatus)
			json.NewEncoder(w).Encode(toDraftListResponse(drafts))
			return
		}
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDraftListResponse(drafts))
}

// GetStatus は現在の操作状態を返す。
// GET /api/status
func (h *DraftHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.Status())
}

// toDraftResponse はドメインモデルをAPIレスポンスに変換する。
func toDraftResponse(d *model.Draft) draftResponse {
	return draftResponse{
		ID: d.ID,
		Project: projectResponse{
			Name:        d.Project.Name,
			URL:         d.Project.URL,
			Description: d.Project.Description,
			Author:      d.Project.Author,
			Stars:       d.Project.Stars,
			Topic:       d.Project.Topic,
			License:     d.Project.License,
		},
		PainPoint:   d.PainPoint,
		Solution:    d.Solution,
		PostContent: d.PostContent,
		CreatedAt:   d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		TargetDate:  d.TargetDate,
		Slot:        string(d.Slot),
		SlotLabel:   d.Slot.Label(),
		Status:      string(d.Status),
		FBPostID:    d.FBPostID,
	}
}

func toDraftListResponse(drafts []model.Draft) draftListResponse {
	resp := draftListResponse{Drafts: make([]draftResponse, 0, len(drafts))}
	for _, d := range drafts {
		resp.Drafts = append(resp.Drafts, toDraftResponse(&d))
	}
	return resp
}

// writeInvalidRequestBody はJSONボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("内部サーバーエラー", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はエラーコードをHTTPステータスコードに対応付ける。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRepoURL, model.ErrCodeInvalidSlot,
		model.ErrCodeInvalidDate, model.ErrCodeInvalidStyle:
		return http.StatusBadRequest
	case model.ErrCodeDraftNotFound:
		return http.StatusNotFound
	case model.ErrCodeOperationInProgress, model.ErrCodeAlreadyPosted:
		return http.StatusConflict
	case model.ErrCodeNotConfigured, model.ErrCodeNoResults,
		model.ErrCodeTokenExpired, model.ErrCodePermissionDenied,
		model.ErrCodeConnectFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeGenerationFailed, model.ErrCodePublishFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
