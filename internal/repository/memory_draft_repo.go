package repository

import (
	"context"
	"sync"

	"github.com/hitoshi/gitpost/internal/model"
)

// MemoryDraftRepo はメモリ上の順序付きコレクションによる下書きリポジトリ。
// データベースを設定しない場合のデフォルト実装で、プロセス終了とともに内容は消える。
// 実行モデル上ミューテーションは直列化されるが、HTTPハンドラーからの
// 読み取りと競合するためロックで保護する。
type MemoryDraftRepo struct {
	mu     sync.RWMutex
	drafts []model.Draft
}

// NewMemoryDraftRepo はMemoryDraftRepoを生成する。
func NewMemoryDraftRepo() *MemoryDraftRepo {
	return &MemoryDraftRepo{drafts: []model.Draft{}}
}

var _ DraftRepository = (*MemoryDraftRepo)(nil)

// List は全下書きをストア順で返す。
func (r *MemoryDraftRepo) List(ctx context.Context) ([]model.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Draft, len(r.drafts))
	copy(out, r.drafts)
	return out, nil
}

// FindByID は指定IDの下書きを取得する。見つからない場合はnilを返す。
func (r *MemoryDraftRepo) FindByID(ctx context.Context, id string) (*model.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.drafts {
		if d.ID == id {
			found := d
			return &found, nil
		}
	}
	return nil, nil
}

// ReplaceAll はストアの内容を新しいバッチで完全に置き換える。
func (r *MemoryDraftRepo) ReplaceAll(ctx context.Context, drafts []model.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drafts = make([]model.Draft, len(drafts))
	copy(r.drafts, drafts)
	return nil
}

// Prepend は下書きをストアの先頭に追加する。
func (r *MemoryDraftRepo) Prepend(ctx context.Context, draft model.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drafts = append([]model.Draft{draft}, r.drafts...)
	return nil
}

// UpdateFields は編集可能な3フィールドのみを置き換える。
func (r *MemoryDraftRepo) UpdateFields(ctx context.Context, id, postContent string, slot model.Slot, targetDate string) (*model.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.drafts {
		if r.drafts[i].ID == id {
			r.drafts[i].PostContent = postContent
			r.drafts[i].Slot = slot
			r.drafts[i].TargetDate = targetDate
			updated := r.drafts[i]
			return &updated, nil
		}
	}
	return nil, nil
}

// MarkPosted は下書きを投稿済みにし、外部投稿IDを記録する。
func (r *MemoryDraftRepo) MarkPosted(ctx context.Context, id, fbPostID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.drafts {
		if r.drafts[i].ID == id {
			r.drafts[i].Status = model.DraftStatusPosted
			r.drafts[i].FBPostID = fbPostID
			return nil
		}
	}
	return nil
}

// MarkFailed は下書きを失敗状態にする。
func (r *MemoryDraftRepo) MarkFailed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.drafts {
		if r.drafts[i].ID == id {
			r.drafts[i].Status = model.DraftStatusFailed
			return nil
		}
	}
	return nil
}

// Delete は指定IDの下書きを削除する。
func (r *MemoryDraftRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.drafts {
		if r.drafts[i].ID == id {
			r.drafts = append(r.drafts[:i], r.drafts[i+1:]...)
			return nil
		}
	}
	return nil
}
