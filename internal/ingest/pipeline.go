package ingest

import (
	"fmt"
	"log"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/aggregate"
	"github.com/Grangy/specialist-warehouse-sub000/internal/difficulty"
	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/scoring"
	"github.com/Grangy/specialist-warehouse-sub000/internal/timing"
)

// RecordStore 任务记录写入接口
type RecordStore interface {
	UpsertTaskRecord(r *model.TaskRecord) error
}

// Pipeline 完成事件处理管线：时间指标 → 定额查询 → 评分 → 落库 →
// 难度观测。汇总重算由调用方按需触发（单事件实时重算或批量后统一重算）
type Pipeline struct {
	records RecordStore
	norms   *scoring.NormService
	learner *difficulty.Learner
	cfg     scoring.Config
}

// NewPipeline 创建处理管线
func NewPipeline(records RecordStore, norms *scoring.NormService, learner *difficulty.Learner, cfg scoring.Config) *Pipeline {
	return &Pipeline{records: records, norms: norms, learner: learner, cfg: cfg}
}

// ProcessEvent 处理一次完成事件，返回落库的任务记录（复核任务带唱检
// 时为两条）。不合格事件跳过并记日志，返回 (nil, nil)；只有存储层
// 故障才返回错误。
func (p *Pipeline) ProcessEvent(ev *model.TaskCompletionEvent) ([]*model.TaskRecord, error) {
	if ev.TaskID == "" || ev.UserID == "" {
		log.Printf("跳过事件：缺少任务或执行人标识 task=%q user=%q", ev.TaskID, ev.UserID)
		return nil, nil
	}
	if !ev.RoleType.Valid() || ev.RoleType == model.RoleAdmin || ev.RoleType == model.RoleDictator {
		// 唱检不独立上报事件，只作为复核事件的附属信息出现
		log.Printf("跳过事件：角色不参与统计 task=%s role=%s", ev.TaskID, ev.RoleType)
		return nil, nil
	}

	metrics := timing.Extract(ev)

	at := attributionInstant(ev)
	norm, err := p.norms.Lookup(ev.Warehouse, at)
	if err != nil {
		// 定额查询失败与数据缺陷分开记，便于区分存储故障和脏数据
		log.Printf("定额查询失败，事件跳过 task=%s warehouse=%s: %v", ev.TaskID, ev.Warehouse, err)
		return nil, nil
	}

	switches := scoring.Switches(timing.DistinctWarehouses(ev))
	result := scoring.Score(scoring.Input{
		Positions:   ev.Positions,
		Units:       ev.Units,
		Switches:    switches,
		PickTimeSec: metrics.PickTimeSec,
		Norm:        norm,
	}, p.cfg)

	rec := &model.TaskRecord{
		TaskID:     ev.TaskID,
		UserID:     ev.UserID,
		Role:       ev.RoleType,
		CreditRole: ev.RoleType,
		ShipmentID: ev.ShipmentID,
		Warehouse:  ev.Warehouse,

		StartedAt:   ev.StartedAt,
		CompletedAt: ev.CompletedAt,
		ConfirmedAt: ev.ConfirmedAt,

		Positions: ev.Positions,
		Units:     ev.Units,
		Switches:  switches,

		TaskTimeSec:    metrics.TaskTimeSec,
		PickTimeSec:    metrics.PickTimeSec,
		ElapsedTimeSec: metrics.ElapsedTimeSec,
		GapTimeSec:     metrics.GapTimeSec,

		ExpectedTimeSec:   &result.ExpectedTimeSec,
		EfficiencyRaw:     &result.EfficiencyRaw,
		EfficiencyClamped: &result.EfficiencyClamped,
		BasePoints:        result.BasePoints,
		OrderPoints:       result.OrderPoints,

		NormA:        norm.NormA,
		NormB:        norm.NormB,
		NormC:        norm.NormC,
		CoefficientK: norm.CoefficientK,
		CoefficientM: norm.CoefficientM,
		NormVersion:  norm.Version,
	}

	if err := p.records.UpsertTaskRecord(rec); err != nil {
		return nil, fmt.Errorf("store task record %s: %w", ev.TaskID, err)
	}
	out := []*model.TaskRecord{rec}

	// 复核任务带唱检员：唱检按比例分享积分，入其主角色的榜单。
	// 不复制货量，避免订单体量被重复统计
	if ev.RoleType == model.RoleChecker && ev.DictatorID != "" && ev.DictatorID != ev.UserID {
		creditRole := ev.DictatorRole
		if !creditRole.Valid() || creditRole == model.RoleAdmin {
			creditRole = model.RoleDictator
		}
		drec := &model.TaskRecord{
			TaskID:     ev.TaskID,
			UserID:     ev.DictatorID,
			Role:       model.RoleDictator,
			CreditRole: creditRole,
			ShipmentID: ev.ShipmentID,
			Warehouse:  ev.Warehouse,

			StartedAt:   ev.StartedAt,
			CompletedAt: ev.CompletedAt,
			ConfirmedAt: ev.ConfirmedAt,

			BasePoints:  result.BasePoints * p.cfg.DictatorShare,
			OrderPoints: scoring.DictatorPoints(result.OrderPoints, p.cfg),

			NormA:        norm.NormA,
			NormB:        norm.NormB,
			NormC:        norm.NormC,
			CoefficientK: norm.CoefficientK,
			CoefficientM: norm.CoefficientM,
			NormVersion:  norm.Version,
		}
		if err := p.records.UpsertTaskRecord(drec); err != nil {
			return nil, fmt.Errorf("store dictator record %s/%s: %w", ev.TaskID, ev.DictatorID, err)
		}
		out = append(out, drec)
	}

	if p.learner != nil {
		p.learner.Observe(ev, metrics.TaskTimeSec)
	}

	return out, nil
}

// ProcessAndRecompute 实时路径：处理单个事件并立即重算受影响的日/月
func (p *Pipeline) ProcessAndRecompute(ev *model.TaskCompletionEvent, agg *aggregate.Aggregator) ([]*model.TaskRecord, error) {
	recs, err := p.ProcessEvent(ev)
	if err != nil || len(recs) == 0 {
		return recs, err
	}
	if at, ok := recs[0].AttributionDay(); ok {
		if err := agg.RecomputeDaysTouching(at); err != nil {
			return recs, fmt.Errorf("recompute after event %s: %w", ev.TaskID, err)
		}
	}
	return recs, nil
}

// attributionInstant 事件的归属时刻，两个时间戳都缺时用当前时间查定额
func attributionInstant(ev *model.TaskCompletionEvent) time.Time {
	if ev.CompletedAt != nil {
		return *ev.CompletedAt
	}
	if ev.ConfirmedAt != nil {
		return *ev.ConfirmedAt
	}
	return time.Now()
}
