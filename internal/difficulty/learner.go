package difficulty

import (
	"log"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// Store 货位难度仓储接口：按 (sku, warehouse) 做增量 upsert
type Store interface {
	ApplyObservation(sku, warehouse string, secPerUnit, secPerPos float64, units int) error
}

// Config 学习器配置
type Config struct {
	// 指定仓库在切换时刻之前的计时数据不可信，整体剔除
	CutoverWarehouse string
	CutoverAt        time.Time
	CutoverEnabled   bool
}

// Learner 货位难度在线学习器：每个完成的拣货任务按 SKU 行做一次
// 运行均值更新，复杂度 O(任务内不同 SKU 数)，从不回扫历史
type Learner struct {
	store Store
	cfg   Config
}

// NewLearner 创建学习器
func NewLearner(store Store, cfg Config) *Learner {
	return &Learner{store: store, cfg: cfg}
}

// Observe 处理一次拣货完成事件，返回实际落库的行数。
// 管理员任务、缺时间戳/缺执行人的任务整体跳过；单行落库失败记录
// 自然键后继续，不中断批次。
func (l *Learner) Observe(ev *model.TaskCompletionEvent, taskTimeSec *float64) int {
	if ev.RoleType != model.RoleCollector {
		return 0
	}
	if ev.UserID == "" {
		return 0
	}
	if taskTimeSec == nil || ev.CompletedAt == nil {
		return 0
	}
	if len(ev.Lines) == 0 {
		return 0
	}

	// 任务级均值（不是按行拆分的耗时）
	var secPerUnit, secPerPos float64
	if ev.Units > 0 {
		secPerUnit = *taskTimeSec / float64(ev.Units)
	}
	if ev.Positions > 0 {
		secPerPos = *taskTimeSec / float64(ev.Positions)
	}
	if secPerUnit == 0 && secPerPos == 0 {
		return 0
	}

	// 同一 (sku, warehouse) 在一个任务里只计一次
	type lineKey struct{ sku, warehouse string }
	merged := map[lineKey]int{}
	order := []lineKey{}
	for _, line := range ev.Lines {
		if line.SKU == "" {
			continue
		}
		k := lineKey{sku: line.SKU, warehouse: line.Warehouse}
		if _, ok := merged[k]; !ok {
			order = append(order, k)
		}
		merged[k] += line.Units
	}

	applied := 0
	for _, k := range order {
		if l.excluded(k.warehouse, *ev.CompletedAt) {
			continue
		}
		if err := l.store.ApplyObservation(k.sku, k.warehouse, secPerUnit, secPerPos, merged[k]); err != nil {
			log.Printf("难度观测落库失败 sku=%s warehouse=%s: %v", k.sku, k.warehouse, err)
			continue
		}
		applied++
	}
	return applied
}

// excluded 该观测是否落入数据剔除窗口
func (l *Learner) excluded(warehouse string, observedAt time.Time) bool {
	if !l.cfg.CutoverEnabled {
		return false
	}
	return warehouse == l.cfg.CutoverWarehouse && observedAt.Before(l.cfg.CutoverAt)
}
