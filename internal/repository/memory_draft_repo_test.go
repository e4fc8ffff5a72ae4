package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/gitpost/internal/model"
)

func newDraft(id string, status model.DraftStatus) model.Draft {
	return model.Draft{
		ID: id,
		Project: model.Project{
			Name: "repo-" + id,
			URL:  "https://github.com/owner/repo-" + id,
		},
		PostContent: "本文 " + id,
		CreatedAt:   time.Now(),
		TargetDate:  "2026-03-15",
		Slot:        model.SlotMorning,
		Status:      status,
	}
}

func TestMemoryDraftRepo_ReplaceAll_FullyReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDraftRepo()

	first := []model.Draft{newDraft("a", model.DraftStatusDraft), newDraft("b", model.DraftStatusDraft)}
	if err := repo.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll がエラーを返した: %v", err)
	}

	second := []model.Draft{newDraft("c", model.DraftStatusDraft)}
	if err := repo.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("2回目のReplaceAll がエラーを返した: %v", err)
	}

	// 2回目のバッチのみが残り、和集合にならない
	drafts, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("ストアの件数 = %d, want 1", len(drafts))
	}
	if drafts[0].ID != "c" {
		t.Errorf("残った下書き = %s, want c", drafts[0].ID)
	}
}

func TestMemoryDraftRepo_Prepend_AddsToFront(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDraftRepo()

	if err := repo.ReplaceAll(ctx, []model.Draft{newDraft("a", model.DraftStatusDraft)}); err != nil {
		t.Fatalf("ReplaceAll がエラーを返した: %v", err)
	}

	before, _ := repo.List(ctx)
	if err := repo.Prepend(ctx, newDraft("manual-b", model.DraftStatusDraft)); err != nil {
		t.Fatalf("Prepend がエラーを返した: %v", err)
	}

	after, _ := repo.List(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("件数 = %d, want %d", len(after), len(before)+1)
	}
	if after[0].ID != "manual-b" {
		t.Errorf("先頭の下書き = %s, want manual-b", after[0].ID)
	}
	if after[1].ID != "a" {
		t.Errorf("既存の下書きが保持されていない: %s", after[1].ID)
	}
}

func TestMemoryDraftRepo_UpdateFields_PreservesIDAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDraftRepo()

	posted := newDraft("a", model.DraftStatusPosted)
	posted.FBPostID = "fb_123"
	if err := repo.ReplaceAll(ctx, []model.Draft{posted}); err != nil {
		t.Fatalf("ReplaceAll がエラーを返した: %v", err)
	}

	updated, err := repo.UpdateFields(ctx, "a", "編集後の本文", model.SlotEvening, "2026-04-01")
	if err != nil {
		t.Fatalf("UpdateFields がエラーを返した: %v", err)
	}
	if updated == nil {
		t.Fatal("UpdateFields がnilを返した")
	}

	if updated.PostContent != "編集後の本文" {
		t.Errorf("PostContent = %q", updated.PostContent)
	}
	if updated.Slot != model.SlotEvening {
		t.Errorf("Slot = %s, want %s", updated.Slot, model.SlotEvening)
	}
	if updated.TargetDate != "2026-04-01" {
		t.Errorf("TargetDate = %s", updated.TargetDate)
	}

	// 投稿済み下書きの編集でもステータスと外部IDは維持される
	if updated.ID != "a" {
		t.Errorf("IDが変更された: %s", updated.ID)
	}
	if updated.Status != model.DraftStatusPosted {
		t.Errorf("Status = %s, want posted", updated.Status)
	}
	if updated.FBPostID != "fb_123" {
		t.Errorf("FBPostID = %s, want fb_123", updated.FBPostID)
	}
}

func TestMemoryDraftRepo_UpdateFields_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDraftRepo()

	updated, err := repo.UpdateFields(ctx, "nope", "x", model.SlotMorning, "2026-01-01")
	if err != nil {
		t.Fatalf("UpdateFields がエラーを返した: %v", err)
	}
	if updated != nil {
		t.Error("存在しないIDに対してnil以外が返った")
	}
}

func TestMemoryDraftRepo_MarkPostedAndFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDraftRepo()

	if err := repo.ReplaceAll(ctx, []model.Draft{
		newDraft("a", model.DraftStatusDraft),
		newDraft("b", model.DraftStatusDraft),
	}); err != nil {
		t.Fatalf("ReplaceAll がエラーを返した: %v", err)
	}

	if err := repo.MarkPosted(ctx, "a", "fb_1"); err != nil {
		t.Fatalf("MarkPosted がエラーを返した: %v", err)
	}
	if err := repo.MarkFailed(ctx, "b"); err != nil {
		t.Fatalf("MarkFailed がエラーを返した: %v", err)
	}

	a, _ := repo.FindByID(ctx, "a")
	if a.Status != model.DraftStatusPosted || a.FBPostID != "fb_1" {
		t.Errorf("a: status = %s, fbPostID = %s", a.Status, a.FBPostID)
	}
	b, _ := repo.FindByID(ctx, "b")
	if b.Status != model.DraftStatusFailed {
		t.Errorf("b: status = %s, want failed", b.Status)
	}
}

func TestMemoryDraftRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDraftRepo()

	if err := repo.ReplaceAll(ctx, []model.Draft{
		newDraft("a", model.DraftStatusDraft),
		newDraft("b", model.DraftStatusDraft),
	}); err != nil {
		t.Fatalf("ReplaceAll がエラーを返した: %v", err)
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}

	drafts, _ := repo.List(ctx)
	if len(drafts) != 1 || drafts[0].ID != "b" {
		t.Errorf("削除後のストア内容が不正: %+v", drafts)
	}
}

func TestMemoryDraftRepo_List_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDraftRepo()

	if err := repo.ReplaceAll(ctx, []model.Draft{newDraft("a", model.DraftStatusDraft)}); err != nil {
		t.Fatalf("ReplaceAll がエラーを返した: %v", err)
	}

	drafts, _ := repo.List(ctx)
	drafts[0].Status = model.DraftStatusFailed

	reloaded, _ := repo.FindByID(ctx, "a")
	if reloaded.Status != model.DraftStatusDraft {
		t.Error("Listの戻り値を変更するとストア内部が書き換わってしまう")
	}
}
