// Package post は投稿ライフサイクルのオーケストレーションを提供する。
// リサーチ→生成→スロット割当→保存、および保存→公開→状態更新の
// 2本のパイプラインと、その進行状態の管理を担う。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gitpost/internal/metrics"
	"github.com/hitoshi/gitpost/internal/model"
	"github.com/hitoshi/gitpost/internal/repository"
	"github.com/hitoshi/gitpost/internal/schedule"
	"github.com/hitoshi/gitpost/internal/security"
	"github.com/hitoshi/gitpost/internal/settings"
)

// Researcher はトレンドリポジトリの発見インターフェース。
// AIリサーチとフィードリサーチの2実装がある。
type Researcher interface {
	ResearchProjects(ctx context.Context) ([]model.Project, error)
}

// Generator は投稿コンテンツの生成インターフェース。
type Generator interface {
	// GenerateBatchContent はプロジェクト配列と位置的に対応するコンテンツ配列を返す。
	// 返却配列は入力より短い場合がある。
	GenerateBatchContent(ctx context.Context, projects []model.Project, style model.LanguageStyle) ([]model.GeneratedContent, error)

	// ResearchAndGenerateSingle は単一リポジトリのリサーチと生成を一度に行う。
	ResearchAndGenerateSingle(ctx context.Context, repoURL string, style model.LanguageStyle) (*model.SingleResult, error)
}

// Publisher はFacebookページへの投稿インターフェース。
type Publisher interface {
	PostToPage(ctx context.Context, pageID, accessToken, message, link string) (string, error)
}

// OperationState はライフサイクル操作の進行状態を表す。
// 同時に実行できる操作は1つだけで、進行中の状態では新しい操作を受け付けない。
type OperationState string

const (
	StateIdle        OperationState = "idle"
	StateResearching OperationState = "researching"
	StateGenerating  OperationState = "generating"
	StatePosting     OperationState = "posting"
	StateCompleted   OperationState = "completed"
	StateError       OperationState = "error"
)

// Status は現在の操作状態と選択中の下書きを表す。
// LastErrorは直近の操作がerrorで終わった場合のメッセージで、次の操作開始時にクリアされる。
type Status struct {
	State         OperationState `json:"state"`
	ActiveDraftID string         `json:"active_draft_id,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

// Service は投稿ライフサイクルのサービス層。
// 操作状態のガードはプロセス内の単一ミューテックスで行う。
type Service struct {
	draftRepo    repository.DraftRepository
	settingsRepo repository.SettingsRepository
	researcher   Researcher
	generator    Generator
	publisher    Publisher
	sanitizer    security.TextSanitizerService
	guard        security.URLGuardService
	collector    metrics.MetricsCollector
	logger       *slog.Logger

	// publishIntervalは一括投稿の連続呼び出し間隔。0なら待機しない。
	publishInterval time.Duration
	// completedResetDelayは完了表示をアイドルに戻すまでの時間。
	completedResetDelay time.Duration

	now func() time.Time

	mu            sync.Mutex
	state         OperationState
	activeDraftID string
	lastError     string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	draftRepo repository.DraftRepository,
	settingsRepo repository.SettingsRepository,
	researcher Researcher,
	generator Generator,
	publisher Publisher,
	sanitizer security.TextSanitizerService,
	guard security.URLGuardService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	publishInterval time.Duration,
	completedResetDelay time.Duration,
) *Service {
	return &Service{
		draftRepo:           draftRepo,
		settingsRepo:        settingsRepo,
		researcher:          researcher,
		generator:           generator,
		publisher:           publisher,
		sanitizer:           sanitizer,
		guard:               guard,
		collector:           collector,
		logger:              logger,
		publishInterval:     publishInterval,
		completedResetDelay: completedResetDelay,
		now:                 time.Now,
		state:               StateIdle,
	}
}

// Status は現在の操作状態を返す。
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{State: s.state, ActiveDraftID: s.activeDraftID, LastError: s.lastError}
}

// begin は操作を開始する。進行中の操作があればエラーを返す。
// idle、completed、errorのいずれかからのみ開始できる。
func (s *Service) begin(initial OperationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle, StateCompleted, StateError:
		s.state = initial
		s.lastError = ""
		return nil
	default:
		return model.NewOperationInProgressError(string(s.state))
	}
}

// setState は進行中の操作の状態を更新する。
func (s *Service) setState(state OperationState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// finish は操作を終了する。成功時はcompletedにし、一定時間後にidleへ戻す。
// 失敗時はerrorにする。errorは次の操作開始を妨げない。
func (s *Service) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.lastError = err.Error()
		return
	}
	s.state = StateCompleted
	time.AfterFunc(s.completedResetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == StateCompleted {
			s.state = StateIdle
		}
	})
}

// setActiveDraft は選択中の下書きを更新する。
func (s *Service) setActiveDraft(id string) {
	s.mu.Lock()
	s.activeDraftID = id
	s.mu.Unlock()
}

// SelectDraft は指定IDの下書きを選択状態にする。
func (s *Service) SelectDraft(ctx context.Context, id string) error {
	draft, err := s.draftRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("下書きの取得に失敗しました: %w", err)
	}
	if draft == nil {
		return model.NewDraftNotFoundError(id)
	}
	s.setActiveDraft(id)
	return nil
}

// BatchResearchAndSchedule はトレンドリポジトリをリサーチし、
// バッチ生成したコンテンツをスロットに割り当てて保存する。
// ストアの既存内容は新しいバッチで完全に置き換えられる。
// 準備ゲートを通過できない場合はリサーチを開始せずにエラーを返す。
func (s *Service) BatchResearchAndSchedule(ctx context.Context, targetDate string) ([]model.Draft, error) {
	if !model.ValidTargetDate(targetDate) {
		return nil, model.NewInvalidDateError(targetDate)
	}

	current, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	if reasons := settings.CheckReadiness(current); len(reasons) > 0 {
		return nil, model.NewNotConfiguredError(reasons)
	}

	if err := s.begin(StateResearching); err != nil {
		return nil, err
	}

	drafts, err := s.runBatch(ctx, current, targetDate)
	s.finish(err)
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *Service) runBatch(ctx context.Context, current model.Settings, targetDate string) ([]model.Draft, error) {
	projects, err := s.researcher.ResearchProjects(ctx)
	if err != nil {
		s.logger.Error("リサーチに失敗しました", slog.String("error", err.Error()))
		return nil, asAPIError(err, model.NewGenerationFailedError)
	}
	if len(projects) == 0 {
		return nil, model.NewNoResultsError()
	}
	s.collector.RecordResearchBatch(len(projects))

	s.setState(StateGenerating)
	contents, err := s.generator.GenerateBatchContent(ctx, projects, current.LanguageStyle)
	if err != nil {
		s.logger.Error("バッチ生成に失敗しました", slog.String("error", err.Error()))
		return nil, asAPIError(err, model.NewGenerationFailedError)
	}

	// 生成結果は入力と位置的に対応する。欠落分は空のプレースホルダーで補完し、
	// 1件の不正なレスポンスがバッチ全体を失敗させないようにする。
	placeholders := 0
	drafts := make([]model.Draft, len(projects))
	createdAt := s.now()
	for i, project := range projects {
		content := model.GeneratedContent{}
		if i < len(contents) {
			content = contents[i]
		} else {
			placeholders++
		}
		drafts[i] = model.Draft{
			ID:          uuid.NewString(),
			Project:     project,
			PainPoint:   s.sanitizer.Sanitize(content.PainPoint),
			Solution:    s.sanitizer.Sanitize(content.Solution),
			PostContent: s.sanitizer.Sanitize(content.PostContent),
			CreatedAt:   createdAt,
			TargetDate:  targetDate,
			Slot:        schedule.AssignSlot(i),
			Status:      model.DraftStatusDraft,
		}
	}
	if placeholders > 0 {
		s.collector.RecordGenerationPlaceholders(placeholders)
		s.logger.Warn("生成結果の欠落をプレースホルダーで補完しました",
			slog.Int("placeholder_count", placeholders),
		)
	}

	if err := s.draftRepo.ReplaceAll(ctx, drafts); err != nil {
		return nil, fmt.Errorf("下書きの保存に失敗しました: %w", err)
	}
	s.setActiveDraft(drafts[0].ID)

	s.logger.Info("バッチリサーチが完了しました",
		slog.Int("draft_count", len(drafts)),
		slog.String("target_date", targetDate),
	)
	return drafts, nil
}

// ManualAddOne は指定されたGitHubリポジトリを単体でリサーチ・生成し、
// ストアの先頭に追加する。既存のスケジュールは保持される。
func (s *Service) ManualAddOne(ctx context.Context, repoURL, targetDate string) (*model.Draft, error) {
	if err := s.guard.ValidateRepositoryURL(repoURL); err != nil {
		return nil, model.NewInvalidRepoURLError(err.Error())
	}
	if !model.ValidTargetDate(targetDate) {
		return nil, model.NewInvalidDateError(targetDate)
	}

	if err := s.begin(StateResearching); err != nil {
		return nil, err
	}

	draft, err := s.runManualAdd(ctx, repoURL, targetDate)
	s.finish(err)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *Service) runManualAdd(ctx context.Context, repoURL, targetDate string) (*model.Draft, error) {
	current, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	result, err := s.generator.ResearchAndGenerateSingle(ctx, repoURL, current.LanguageStyle)
	if err != nil {
		s.logger.Error("単体リサーチに失敗しました",
			slog.String("repo_url", repoURL),
			slog.String("error", err.Error()),
		)
		return nil, asAPIError(err, model.NewGenerationFailedError)
	}

	draft := model.Draft{
		ID:          "manual-" + uuid.NewString(),
		Project:     result.Project,
		PainPoint:   s.sanitizer.Sanitize(result.PainPoint),
		Solution:    s.sanitizer.Sanitize(result.Solution),
		PostContent: s.sanitizer.Sanitize(result.PostContent),
		CreatedAt:   s.now(),
		TargetDate:  targetDate,
		Slot:        model.SlotMorning,
		Status:      model.DraftStatusDraft,
	}

	if err := s.draftRepo.Prepend(ctx, draft); err != nil {
		return nil, fmt.Errorf("下書きの保存に失敗しました: %w", err)
	}
	s.setActiveDraft(draft.ID)

	s.logger.Info("手動追加が完了しました",
		slog.String("draft_id", draft.ID),
		slog.String("repo_url", repoURL),
	)
	return &draft, nil
}

// PublishOne は単一の下書きをFacebookページに公開する。
// 投稿済みの下書きはコラボレーター呼び出しの前に拒否される。
// 失敗時はステータスを変更しない。failedへの降格は一括投稿のみが行う。
func (s *Service) PublishOne(ctx context.Context, id string) (*model.Draft, error) {
	current, err := s.loadPublishableSettings(ctx)
	if err != nil {
		return nil, err
	}

	draft, err := s.draftRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("下書きの取得に失敗しました: %w", err)
	}
	if draft == nil {
		return nil, model.NewDraftNotFoundError(id)
	}
	if draft.Status == model.DraftStatusPosted {
		return nil, model.NewAlreadyPostedError(id)
	}

	if err := s.begin(StatePosting); err != nil {
		return nil, err
	}

	result, err := s.runPublishOne(ctx, current, draft)
	s.finish(err)
	return result, err
}

func (s *Service) runPublishOne(ctx context.Context, current model.Settings, draft *model.Draft) (*model.Draft, error) {
	fbPostID, err := s.publishDraft(ctx, current, draft)
	if err != nil {
		return nil, err
	}

	if err := s.draftRepo.MarkPosted(ctx, draft.ID, fbPostID); err != nil {
		return nil, fmt.Errorf("投稿状態の保存に失敗しました: %w", err)
	}

	draft.Status = model.DraftStatusPosted
	draft.FBPostID = fbPostID
	return draft, nil
}

// PublishAll はストア順にすべての未投稿下書きを公開する。
// 1件の失敗は残りの処理を中断しない。失敗した下書きはfailedに降格され、
// ストアは1件ごとに逐次更新される。失敗があった場合は集約エラーを返すが、
// 個別の結果は各下書きのステータスで確認できる。
func (s *Service) PublishAll(ctx context.Context) ([]model.Draft, error) {
	current, err := s.loadPublishableSettings(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.begin(StatePosting); err != nil {
		return nil, err
	}

	drafts, failed, err := s.runPublishAll(ctx, current)
	if err == nil && failed > 0 {
		err = model.NewPublishFailedError(fmt.Sprintf("%d件の投稿に失敗しました", failed))
	}
	s.finish(err)
	if err != nil && drafts == nil {
		return nil, err
	}
	return drafts, err
}

func (s *Service) runPublishAll(ctx context.Context, current model.Settings) ([]model.Draft, int, error) {
	drafts, err := s.draftRepo.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("下書き一覧の取得に失敗しました: %w", err)
	}

	failed := 0
	attempted := 0
	for i := range drafts {
		if drafts[i].Status == model.DraftStatusPosted {
			continue
		}

		// レート制限のある公開エンドポイントを連続で叩かないよう間隔を空ける
		if attempted > 0 && s.publishInterval > 0 {
			select {
			case <-ctx.Done():
				return drafts, failed, ctx.Err()
			case <-time.After(s.publishInterval):
			}
		}
		attempted++

		fbPostID, err := s.publishDraft(ctx, current, &drafts[i])
		if err != nil {
			failed++
			if markErr := s.draftRepo.MarkFailed(ctx, drafts[i].ID); markErr != nil {
				return drafts, failed, fmt.Errorf("投稿状態の保存に失敗しました: %w", markErr)
			}
			drafts[i].Status = model.DraftStatusFailed
			continue
		}

		if err := s.draftRepo.MarkPosted(ctx, drafts[i].ID, fbPostID); err != nil {
			return drafts, failed, fmt.Errorf("投稿状態の保存に失敗しました: %w", err)
		}
		drafts[i].Status = model.DraftStatusPosted
		drafts[i].FBPostID = fbPostID
	}

	s.logger.Info("一括投稿が完了しました",
		slog.Int("attempted", attempted),
		slog.Int("failed", failed),
	)
	return drafts, failed, nil
}

// PublishDue は投稿時間帯に入った未投稿の下書きをすべて公開する。
// 自動投稿ワーカーから呼ばれる。一括投稿と同じ部分失敗許容で動作する。
func (s *Service) PublishDue(ctx context.Context, now time.Time) (int, error) {
	current, err := s.loadPublishableSettings(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.begin(StatePosting); err != nil {
		return 0, err
	}

	published, err := s.runPublishDue(ctx, current, now)
	s.finish(err)
	return published, err
}

func (s *Service) runPublishDue(ctx context.Context, current model.Settings, now time.Time) (int, error) {
	drafts, err := s.draftRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("下書き一覧の取得に失敗しました: %w", err)
	}

	published := 0
	for i := range drafts {
		// 一括投稿と同じ述語。failedは時間帯が開いていれば再試行される
		if drafts[i].Status == model.DraftStatusPosted {
			continue
		}
		if !schedule.SlotOpen(drafts[i], now) {
			continue
		}

		if published > 0 && s.publishInterval > 0 {
			select {
			case <-ctx.Done():
				return published, ctx.Err()
			case <-time.After(s.publishInterval):
			}
		}

		fbPostID, err := s.publishDraft(ctx, current, &drafts[i])
		if err != nil {
			if markErr := s.draftRepo.MarkFailed(ctx, drafts[i].ID); markErr != nil {
				return published, fmt.Errorf("投稿状態の保存に失敗しました: %w", markErr)
			}
			continue
		}

		if err := s.draftRepo.MarkPosted(ctx, drafts[i].ID, fbPostID); err != nil {
			return published, fmt.Errorf("投稿状態の保存に失敗しました: %w", err)
		}
		published++
	}
	return published, nil
}

// publishDraft は1件の下書きをFacebookに投稿し、外部投稿IDを返す。
func (s *Service) publishDraft(ctx context.Context, current model.Settings, draft *model.Draft) (string, error) {
	start := time.Now()
	fbPostID, err := s.publisher.PostToPage(ctx, current.FBPageID, current.FBAccessToken, draft.PostContent, draft.Project.URL)
	s.collector.RecordPublishLatency(time.Since(start))

	if err != nil {
		apiErr := asAPIError(err, model.NewPublishFailedError)
		s.collector.RecordPublishFailure(apiErr.Code)
		s.logger.Error("Facebook投稿に失敗しました",
			slog.String("draft_id", draft.ID),
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
		return "", apiErr
	}

	s.collector.RecordPublishSuccess()
	s.logger.Info("Facebookに投稿しました",
		slog.String("draft_id", draft.ID),
		slog.String("fb_post_id", fbPostID),
	)
	return fbPostID, nil
}

// loadPublishableSettings は設定を読み込み、公開操作の前提条件を検証する。
// 準備ゲートに加えて、Graph API呼び出しに必要なアクセストークンの存在を検証する。
func (s *Service) loadPublishableSettings(ctx context.Context) (model.Settings, error) {
	current, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	if reasons := settings.CheckReadiness(current); len(reasons) > 0 {
		return model.Settings{}, model.NewNotConfiguredError(reasons)
	}
	if current.FBAccessToken == "" {
		return model.Settings{}, model.NewNotConfiguredError([]string{"アクセストークンが未設定です"})
	}
	return current, nil
}

// GetDrafts は全下書きをストア順で返す。
func (s *Service) GetDrafts(ctx context.Context) ([]model.Draft, error) {
	drafts, err := s.draftRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("下書き一覧の取得に失敗しました: %w", err)
	}
	return drafts, nil
}

// GetDraft は指定IDの下書きを返す。
func (s *Service) GetDraft(ctx context.Context, id string) (*model.Draft, error) {
	draft, err := s.draftRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("下書きの取得に失敗しました: %w", err)
	}
	if draft == nil {
		return nil, model.NewDraftNotFoundError(id)
	}
	return draft, nil
}

// ScheduleView は下書きをスロット別に分類したスケジュール表示を返す。
func (s *Service) ScheduleView(ctx context.Context) (map[model.Slot][]model.Draft, error) {
	drafts, err := s.draftRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("下書き一覧の取得に失敗しました: %w", err)
	}
	return schedule.GroupBySlot(drafts), nil
}

// UpdateDraft は編集可能な3フィールド（本文、スロット、日付）を置き換える。
// ステータスやIDは変更されず、投稿済みの下書きも編集できる。
func (s *Service) UpdateDraft(ctx context.Context, id, postContent string, slot model.Slot, targetDate string) (*model.Draft, error) {
	if !slot.IsValid() {
		return nil, model.NewInvalidSlotError(string(slot))
	}
	if !model.ValidTargetDate(targetDate) {
		return nil, model.NewInvalidDateError(targetDate)
	}

	updated, err := s.draftRepo.UpdateFields(ctx, id, s.sanitizer.Sanitize(postContent), slot, targetDate)
	if err != nil {
		return nil, fmt.Errorf("下書きの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewDraftNotFoundError(id)
	}
	return updated, nil
}

// DeleteDraft は指定IDの下書きを削除する。
func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	draft, err := s.draftRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("下書きの取得に失敗しました: %w", err)
	}
	if draft == nil {
		return model.NewDraftNotFoundError(id)
	}

	if err := s.draftRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("下書きの削除に失敗しました: %w", err)
	}

	s.mu.Lock()
	if s.activeDraftID == id {
		s.activeDraftID = ""
	}
	s.mu.Unlock()
	return nil
}

// asAPIError はエラーをAPIErrorに変換する。すでにAPIErrorならそのまま返す。
func asAPIError(err error, fallback func(reason string) *model.APIError) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return fallback(err.Error())
}
