package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

type memTasks struct {
	records []*model.TaskRecord
}

func (s *memTasks) TaskRecordsInRange(rng period.Range) ([]*model.TaskRecord, error) {
	return s.records, nil
}

type recordSpec struct {
	user     string
	role     model.RoleType
	pick     float64
	gap      float64
	eff      float64
	points   float64
	switches int
}

func mkRecord(sp recordSpec) *model.TaskRecord {
	completed := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	elapsed := sp.pick + sp.gap
	return &model.TaskRecord{
		TaskID:            sp.user + "-task",
		UserID:            sp.user,
		Role:              sp.role,
		CreditRole:        sp.role,
		ShipmentID:        sp.user + "-s",
		CompletedAt:       &completed,
		Positions:         10,
		Units:             40,
		Switches:          sp.switches,
		PickTimeSec:       &sp.pick,
		GapTimeSec:        &sp.gap,
		ElapsedTimeSec:    &elapsed,
		EfficiencyClamped: &sp.eff,
		OrderPoints:       sp.points,
	}
}

func auditRange() period.Range {
	r := period.NewResolver(0)
	rng, _ := r.ResolveDates("2026-02-10", "2026-02-10")
	return rng
}

func TestRunBuildsCohortBaselines(t *testing.T) {
	t.Parallel()

	tasks := &memTasks{records: []*model.TaskRecord{
		mkRecord(recordSpec{user: "c1", role: model.RoleCollector, pick: 3600, gap: 360, eff: 1.0, points: 30}),
		mkRecord(recordSpec{user: "c2", role: model.RoleCollector, pick: 3000, gap: 300, eff: 1.0, points: 26}),
		mkRecord(recordSpec{user: "k1", role: model.RoleChecker, pick: 1800, gap: 100, eff: 1.0, points: 14}),
		mkRecord(recordSpec{user: "d1", role: model.RoleDictator, pick: 1800, gap: 100, eff: 1.0, points: 10}),
	}}

	report, err := NewAuditor(tasks, DefaultConfig()).Run(auditRange(), time.Now())
	if err != nil {
		t.Fatalf("run audit: %v", err)
	}

	if report.UserCount != 4 || report.TaskCount != 4 {
		t.Fatalf("coverage: users=%d tasks=%d", report.UserCount, report.TaskCount)
	}

	seen := map[string]bool{}
	for _, c := range report.Cohorts {
		seen[c.Cohort] = true
	}
	for _, want := range []string{"collector", "checker", "dictator", CohortOverall} {
		if !seen[want] {
			t.Fatalf("cohort %q missing: %+v", want, report.Cohorts)
		}
	}

	for _, c := range report.Cohorts {
		if c.Cohort == "collector" {
			if c.Users != 2 {
				t.Fatalf("collector cohort users: %d", c.Users)
			}
			if c.PPHP50 == nil || c.GapShareP50 == nil || c.PointsPerHourP50 == nil {
				t.Fatalf("collector baselines missing: %+v", c)
			}
		}
	}

	if report.Gini == nil {
		t.Fatalf("gini missing")
	}
	if report.Narrative == "" {
		t.Fatalf("narrative missing")
	}
}

func TestRunFlagsGapShareOutlier(t *testing.T) {
	t.Parallel()

	records := []*model.TaskRecord{
		mkRecord(recordSpec{user: "c1", role: model.RoleCollector, pick: 3600, gap: 360, eff: 1.0, points: 30}),
		mkRecord(recordSpec{user: "c2", role: model.RoleCollector, pick: 3600, gap: 360, eff: 1.0, points: 30}),
		mkRecord(recordSpec{user: "c3", role: model.RoleCollector, pick: 3600, gap: 360, eff: 1.0, points: 30}),
		// 空闲占比 50%，远超同组中位数 ~9%
		mkRecord(recordSpec{user: "c4", role: model.RoleCollector, pick: 1800, gap: 1800, eff: 1.0, points: 15}),
	}

	report, err := NewAuditor(&memTasks{records: records}, DefaultConfig()).Run(auditRange(), time.Now())
	if err != nil {
		t.Fatalf("run audit: %v", err)
	}

	var found *model.UserFlag
	for i, f := range report.Flags {
		if f.Kind == model.FlagGapShareHigh {
			found = &report.Flags[i]
		}
	}
	if found == nil {
		t.Fatalf("gap share flag missing: %+v", report.Flags)
	}
	if found.UserID != "c4" {
		t.Fatalf("flagged wrong user: %s", found.UserID)
	}
	if !strings.Contains(found.Suggestion, "normC") {
		t.Fatalf("flag must carry a concrete norm suggestion: %s", found.Suggestion)
	}
}

func TestRunFlagsMultiWarehouseAndClampSaturation(t *testing.T) {
	t.Parallel()

	records := []*model.TaskRecord{
		// 全部任务跨库，且效率全部顶在上截断
		mkRecord(recordSpec{user: "c1", role: model.RoleCollector, pick: 1000, gap: 0, eff: 1.5, points: 20, switches: 1}),
		mkRecord(recordSpec{user: "c2", role: model.RoleCollector, pick: 3600, gap: 100, eff: 1.0, points: 28}),
	}
	records[0].TaskID = "c1-task-1"

	report, err := NewAuditor(&memTasks{records: records}, DefaultConfig()).Run(auditRange(), time.Now())
	if err != nil {
		t.Fatalf("run audit: %v", err)
	}

	kinds := map[string]model.UserFlag{}
	for _, f := range report.Flags {
		if f.UserID == "c1" {
			kinds[f.Kind] = f
		}
	}

	mw, ok := kinds[model.FlagMultiWarehouse]
	if !ok {
		t.Fatalf("multi-warehouse flag missing: %+v", report.Flags)
	}
	if !strings.Contains(mw.Suggestion, "coefficientM") {
		t.Fatalf("multi-warehouse suggestion: %s", mw.Suggestion)
	}

	cl, ok := kinds[model.FlagClampSaturated]
	if !ok {
		t.Fatalf("clamp saturation flag missing: %+v", report.Flags)
	}
	if cl.Value != 1.0 {
		t.Fatalf("clamp saturation share: %v", cl.Value)
	}
}

func TestRunRecommendsRaisingKOnLowUnitsCorrelation(t *testing.T) {
	t.Parallel()

	// 积分随行数涨、与件数反向：件数相关性为负
	specs := []struct {
		user   string
		points float64
		units  int
	}{
		{"c1", 10, 100},
		{"c2", 20, 80},
		{"c3", 30, 60},
		{"c4", 40, 40},
	}
	var records []*model.TaskRecord
	for _, sp := range specs {
		r := mkRecord(recordSpec{user: sp.user, role: model.RoleCollector, pick: 3600, gap: 100, eff: 1.0, points: sp.points})
		r.Units = sp.units
		r.Positions = int(sp.points)
		records = append(records, r)
	}

	report, err := NewAuditor(&memTasks{records: records}, DefaultConfig()).Run(auditRange(), time.Now())
	if err != nil {
		t.Fatalf("run audit: %v", err)
	}

	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "coefficientK") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected coefficientK recommendation: %+v", report.Recommendations)
	}
}

func TestRunEmptyPopulation(t *testing.T) {
	t.Parallel()

	report, err := NewAuditor(&memTasks{}, DefaultConfig()).Run(auditRange(), time.Now())
	if err != nil {
		t.Fatalf("run audit: %v", err)
	}
	if report.Gini != nil {
		t.Fatalf("gini of empty population must be nil: %v", *report.Gini)
	}
	if report.Narrative == "" {
		t.Fatalf("narrative must still render")
	}
}
