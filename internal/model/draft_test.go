package model

import "testing"

func TestSlot_IsValid(t *testing.T) {
	for _, slot := range Slots {
		if !slot.IsValid() {
			t.Errorf("固定スロット %s がIsValid() = falseを返した", slot)
		}
	}

	invalid := []Slot{"", "08:00 - 09:00", "00:00-06:00", "morning"}
	for _, slot := range invalid {
		if slot.IsValid() {
			t.Errorf("不正なスロット %q がIsValid() = trueを返した", slot)
		}
	}
}

func TestSlot_StartHour(t *testing.T) {
	tests := []struct {
		slot Slot
		want int
	}{
		{SlotLateNight, 0},
		{SlotMorning, 7},
		{SlotAfternoon, 13},
		{SlotEvening, 19},
	}
	for _, tt := range tests {
		if got := tt.slot.StartHour(); got != tt.want {
			t.Errorf("%s のStartHour() = %d, want %d", tt.slot, got, tt.want)
		}
	}
}

func TestValidTargetDate(t *testing.T) {
	valid := []string{"2026-01-01", "2026-12-31", "2024-02-29"}
	for _, d := range valid {
		if !ValidTargetDate(d) {
			t.Errorf("正しい日付 %q が無効と判定された", d)
		}
	}

	invalid := []string{"", "2026-13-01", "2026-02-30", "01-01-2026", "today"}
	for _, d := range invalid {
		if ValidTargetDate(d) {
			t.Errorf("不正な日付 %q が有効と判定された", d)
		}
	}
}

func TestLanguageStyle_IsValid(t *testing.T) {
	for _, s := range []LanguageStyle{LanguageStyleThaiOnly, LanguageStyleThaiEnglishMix, LanguageStyleEasternThaiMix} {
		if !s.IsValid() {
			t.Errorf("定義済み文体 %s がIsValid() = falseを返した", s)
		}
	}
	if LanguageStyle("japanese").IsValid() {
		t.Error("未定義の文体がIsValid() = trueを返した")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.IsConnected {
		t.Error("初期設定のIsConnectedはfalseであるべき")
	}
	if s.FBPageID != "" || s.FBAccessToken != "" {
		t.Error("初期設定の認証情報は空であるべき")
	}
	if s.LanguageStyle != LanguageStyleThaiEnglishMix {
		t.Errorf("初期設定の文体 = %s, want %s", s.LanguageStyle, LanguageStyleThaiEnglishMix)
	}
}
