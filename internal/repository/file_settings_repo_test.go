package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/gitpost/internal/model"
)

func TestFileSettingsRepo_Load_MissingFileReturnsDefaults(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")

	repo, err := NewFileSettingsRepo(path)
	if err != nil {
		t.Fatalf("NewFileSettingsRepo がエラーを返した: %v", err)
	}

	settings, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}

	if settings.IsConnected {
		t.Error("ファイル未存在時のIsConnectedはfalseであるべき")
	}
	if settings.LanguageStyle != model.LanguageStyleThaiEnglishMix {
		t.Errorf("LanguageStyle = %s, want %s", settings.LanguageStyle, model.LanguageStyleThaiEnglishMix)
	}
}

func TestFileSettingsRepo_SaveThenLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")

	repo, err := NewFileSettingsRepo(path)
	if err != nil {
		t.Fatalf("NewFileSettingsRepo がエラーを返した: %v", err)
	}

	saved := model.Settings{
		FBPageID:        "1029384756",
		FBAccessToken:   "EAAbtoken",
		AutoPostEnabled: true,
		IsConnected:     true,
		LanguageStyle:   model.LanguageStyleEasternThaiMix,
	}
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if loaded != saved {
		t.Errorf("Load = %+v, want %+v", loaded, saved)
	}
}

func TestFileSettingsRepo_Save_OverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")

	repo, _ := NewFileSettingsRepo(path)

	first := model.DefaultSettings()
	first.FBPageID = "111"
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	second := first
	second.FBPageID = "222"
	second.IsConnected = true
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("2回目のSave がエラーを返した: %v", err)
	}

	loaded, _ := repo.Load(ctx)
	if loaded.FBPageID != "222" || !loaded.IsConnected {
		t.Errorf("上書き後のLoad = %+v", loaded)
	}

	// 一時ファイルが残っていない
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("一時ファイルが残っている")
	}
}

func TestFileSettingsRepo_Load_CorruptFileReturnsError(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("テストファイルの作成に失敗: %v", err)
	}

	repo, _ := NewFileSettingsRepo(path)
	if _, err := repo.Load(ctx); err == nil {
		t.Error("壊れたファイルに対してエラーが返らなかった")
	}
}

func TestPostgresDraftRepo_ImplementsInterface(t *testing.T) {
	var _ DraftRepository = (*PostgresDraftRepo)(nil)
}

func TestPostgresSettingsRepo_ImplementsInterface(t *testing.T) {
	var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
}
