// Package schedule はバッチ内の位置から投稿時間帯への割り当てを提供する。
package schedule

import (
	"time"

	"github.com/hitoshi/gitpost/internal/model"
)

// groupSize は同一スロットに連続して割り当てる件数。
// 12件のバッチが3件ずつ4つの時間帯に分散される。
const groupSize = 3

// AssignSlot はバッチ内のインデックスから投稿時間帯を決定する。
// 連続する3件を1グループとし、グループ番号を4で割った余りでスロットを選ぶ。
// 純粋関数であり、乱数にも実時刻にも依存しない。
func AssignSlot(batchIndex int) model.Slot {
	return model.Slots[(batchIndex/groupSize)%len(model.Slots)]
}

// GroupBySlot は下書きの集合をスロット順のビューに分解する。
// スロットは下書きのリストを所有せず、毎回フィルタで導出する。
func GroupBySlot(drafts []model.Draft) map[model.Slot][]model.Draft {
	grouped := make(map[model.Slot][]model.Draft, len(model.Slots))
	for _, slot := range model.Slots {
		grouped[slot] = []model.Draft{}
	}
	for _, d := range drafts {
		grouped[d.Slot] = append(grouped[d.Slot], d)
	}
	return grouped
}

// SlotOpen は指定時刻において下書きのスロット時間帯が開始済みかを判定する。
// 自動投稿ワーカーが投稿対象を選別するために使用する。
// targetDateが過去日の場合は常に開始済みとみなす。
func SlotOpen(d model.Draft, now time.Time) bool {
	target, err := time.ParseInLocation(model.TargetDateLayout, d.TargetDate, now.Location())
	if err != nil {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if target.Before(today) {
		return true
	}
	if target.After(today) {
		return false
	}

	return now.Hour() >= d.Slot.StartHour()
}
