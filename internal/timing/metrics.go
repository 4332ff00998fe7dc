package timing

import (
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// Metrics 一次任务的时间指标；缺时间戳的项为 NULL，不报错
type Metrics struct {
	TaskTimeSec    *float64 `json:"taskTimeSec"`
	PickTimeSec    *float64 `json:"pickTimeSec"`
	ElapsedTimeSec *float64 `json:"elapsedTimeSec"`
	GapTimeSec     *float64 `json:"gapTimeSec"`
}

// anchors 按角色取时间锚点：拣货看 startedAt→completedAt，
// 复核（含唱检）看 completedAt→confirmedAt
func anchors(role model.RoleType, startedAt, completedAt, confirmedAt *time.Time) (start, end *time.Time) {
	if role == model.RoleCollector {
		return startedAt, completedAt
	}
	return completedAt, confirmedAt
}

// interval 两个锚点的间隔秒数，负值归零；任一缺失返回 nil
func interval(start, end *time.Time) *float64 {
	if start == nil || end == nil {
		return nil
	}
	sec := end.Sub(*start).Seconds()
	if sec < 0 {
		sec = 0
	}
	return &sec
}

// Extract 从完成事件提取任务级与订单级时间指标。
// 订单级指标只看该用户自己在订单内的任务，不把其他人的并行任务
// 算进来（否则会把别人的空闲算到这个人头上）。
func Extract(ev *model.TaskCompletionEvent) Metrics {
	var m Metrics

	m.TaskTimeSec = interval(anchors(ev.RoleType, ev.StartedAt, ev.CompletedAt, ev.ConfirmedAt))

	// 兄弟任务集合，若未包含本任务则补上
	sibs := ev.Siblings
	found := false
	for _, s := range sibs {
		if s.TaskID == ev.TaskID {
			found = true
			break
		}
	}
	if !found {
		sibs = append(sibs, model.SiblingTask{
			TaskID:      ev.TaskID,
			Warehouse:   ev.Warehouse,
			StartedAt:   ev.StartedAt,
			CompletedAt: ev.CompletedAt,
			ConfirmedAt: ev.ConfirmedAt,
		})
	}

	var pickSum float64
	pickAny := false
	var minStart, maxEnd *time.Time

	for _, s := range sibs {
		start, end := anchors(ev.RoleType, s.StartedAt, s.CompletedAt, s.ConfirmedAt)
		if sec := interval(start, end); sec != nil {
			pickSum += *sec
			pickAny = true
		}
		if start != nil && end != nil {
			if minStart == nil || start.Before(*minStart) {
				minStart = start
			}
			if maxEnd == nil || end.After(*maxEnd) {
				maxEnd = end
			}
		}
	}

	if pickAny {
		m.PickTimeSec = &pickSum
	}
	m.ElapsedTimeSec = interval(minStart, maxEnd)

	if m.ElapsedTimeSec != nil && m.PickTimeSec != nil {
		gap := *m.ElapsedTimeSec - *m.PickTimeSec
		if gap < 0 {
			gap = 0
		}
		m.GapTimeSec = &gap
	}

	return m
}

// DistinctWarehouses 该用户在订单内触达的不同仓库数（含本任务所在仓库）
func DistinctWarehouses(ev *model.TaskCompletionEvent) int {
	seen := map[string]struct{}{}
	if ev.Warehouse != "" {
		seen[ev.Warehouse] = struct{}{}
	}
	for _, s := range ev.Siblings {
		if s.Warehouse != "" {
			seen[s.Warehouse] = struct{}{}
		}
	}
	return len(seen)
}
