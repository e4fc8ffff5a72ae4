// Package model はドメインモデルを定義する。
package model

import "time"

// Slot は1日を4分割した固定の投稿時間帯を表す。
// 値は閉じた列挙であり、任意の文字列は許可されない。
type Slot string

const (
	// SlotLateNight は深夜帯（00:00 - 06:00）。
	SlotLateNight Slot = "00:00 - 06:00"
	// SlotMorning は朝帯（07:00 - 12:00）。
	SlotMorning Slot = "07:00 - 12:00"
	// SlotAfternoon は昼帯（13:00 - 18:00）。
	SlotAfternoon Slot = "13:00 - 18:00"
	// SlotEvening は夜帯（19:00 - 00:00）。
	SlotEvening Slot = "19:00 - 00:00"
)

// Slots は全スロットの固定順序リスト。
// スロット割り当てとビュー生成はこの順序に従う。
var Slots = [4]Slot{SlotLateNight, SlotMorning, SlotAfternoon, SlotEvening}

// IsValid はスロット値が4つの固定時間帯のいずれかであるかを検証する。
func (s Slot) IsValid() bool {
	for _, slot := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Label はスロットの表示名を返す。
func (s Slot) Label() string {
	switch s {
	case SlotLateNight:
		return "深夜"
	case SlotMorning:
		return "朝"
	case SlotAfternoon:
		return "昼"
	case SlotEvening:
		return "夜"
	}
	return ""
}

// StartHour はスロットの開始時刻（時）を返す。
// 自動投稿ワーカーが時間帯の開始を判定するために使用する。
func (s Slot) StartHour() int {
	switch s {
	case SlotLateNight:
		return 0
	case SlotMorning:
		return 7
	case SlotAfternoon:
		return 13
	case SlotEvening:
		return 19
	}
	return 0
}

// DraftStatus は下書きのライフサイクル状態を表す。
type DraftStatus string

const (
	// DraftStatusDraft は生成直後の編集可能な状態。
	DraftStatusDraft DraftStatus = "draft"
	// DraftStatusScheduled は承認済みで投稿待ちの状態。
	DraftStatusScheduled DraftStatus = "scheduled"
	// DraftStatusPosted は投稿完了の状態。外部投稿IDを必ず持つ。
	DraftStatusPosted DraftStatus = "posted"
	// DraftStatusFailed は一括投稿で失敗した状態。再投稿の対象になる。
	DraftStatusFailed DraftStatus = "failed"
)

// TargetDateLayout はtargetDateのカレンダー日付フォーマット。
const TargetDateLayout = "2006-01-02"

// ValidTargetDate はtargetDateが正しいカレンダー日付かを検証する。
func ValidTargetDate(date string) bool {
	_, err := time.Parse(TargetDateLayout, date)
	return err == nil
}

// Draft はスケジュールされた1件のソーシャル投稿を表す中心エンティティ。
// Projectは1つのDraftが排他的に所有する。
type Draft struct {
	ID          string
	Project     Project
	PainPoint   string
	Solution    string
	PostContent string
	CreatedAt   time.Time
	TargetDate  string // TargetDateLayout形式
	Slot        Slot
	Status      DraftStatus
	FBPostID    string // status=postedの場合のみ非空
}
