package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/aggregate"
	"github.com/Grangy/specialist-warehouse-sub000/internal/difficulty"
	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
	"github.com/Grangy/specialist-warehouse-sub000/internal/scoring"
)

type memRecords struct {
	records []*model.TaskRecord
}

func (m *memRecords) UpsertTaskRecord(r *model.TaskRecord) error {
	for i, old := range m.records {
		if old.TaskID == r.TaskID && old.UserID == r.UserID && old.Role == r.Role {
			m.records[i] = r
			return nil
		}
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memRecords) TaskRecordsInRange(rng period.Range) ([]*model.TaskRecord, error) {
	var out []*model.TaskRecord
	for _, r := range m.records {
		if at, ok := r.AttributionDay(); ok && rng.Contains(at) {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubNormStore struct {
	err error
}

func (s *stubNormStore) ActiveNorm(warehouse string, at time.Time) (*model.Norm, error) {
	return nil, s.err
}

func (s *stubNormStore) ActiveGlobalNorm(at time.Time) (*model.Norm, error) {
	return nil, s.err
}

type memDifficulty struct {
	applied int
}

func (m *memDifficulty) ApplyObservation(sku, warehouse string, secPerUnit, secPerPos float64, units int) error {
	m.applied++
	return nil
}

func newTestPipeline(records *memRecords) (*Pipeline, *memDifficulty) {
	diff := &memDifficulty{}
	learner := difficulty.NewLearner(diff, difficulty.Config{})
	norms := scoring.NewNormService(&stubNormStore{})
	return NewPipeline(records, norms, learner, scoring.DefaultConfig()), diff
}

func collectorEvent() *model.TaskCompletionEvent {
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	completed := started.Add(250 * time.Second)
	return &model.TaskCompletionEvent{
		TaskID:      "T-1",
		UserID:      "u1",
		RoleType:    model.RoleCollector,
		ShipmentID:  "S-1",
		Warehouse:   "WH-1",
		StartedAt:   &started,
		CompletedAt: &completed,
		Positions:   10,
		Units:       20,
		Lines: []model.TaskLine{
			{SKU: "SKU-1", Warehouse: "WH-1", Units: 20},
		},
	}
}

func TestProcessEventCollectorScoring(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	p, diff := newTestPipeline(records)

	got, err := p.ProcessEvent(collectorEvent())
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}

	r := got[0]
	// 兜底定额 A=30：expected = 300，pick = 250 → 效率 1.2
	if r.ExpectedTimeSec == nil || *r.ExpectedTimeSec != 300 {
		t.Errorf("expectedTimeSec = %v, want 300", r.ExpectedTimeSec)
	}
	if r.EfficiencyClamped == nil || *r.EfficiencyClamped != 1.2 {
		t.Errorf("efficiencyClamped = %v, want 1.2", r.EfficiencyClamped)
	}
	if r.BasePoints != 10 {
		t.Errorf("basePoints = %v, want 10", r.BasePoints)
	}
	if r.OrderPoints != 12 {
		t.Errorf("orderPoints = %v, want 12", r.OrderPoints)
	}
	if r.CreditRole != model.RoleCollector {
		t.Errorf("creditRole = %s, want collector", r.CreditRole)
	}
	if r.NormVersion != 0 {
		t.Errorf("normVersion = %d, want 0 (baseline)", r.NormVersion)
	}
	if diff.applied != 1 {
		t.Errorf("difficulty observations = %d, want 1", diff.applied)
	}
}

func TestProcessEventCheckerWithDictator(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	p, _ := newTestPipeline(records)

	completed := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	confirmed := completed.Add(250 * time.Second)
	ev := &model.TaskCompletionEvent{
		TaskID:       "T-2",
		UserID:       "checker-1",
		RoleType:     model.RoleChecker,
		ShipmentID:   "S-2",
		Warehouse:    "WH-1",
		CompletedAt:  &completed,
		ConfirmedAt:  &confirmed,
		Positions:    10,
		Units:        20,
		DictatorID:   "dict-1",
		DictatorRole: model.RoleChecker,
	}

	got, err := p.ProcessEvent(ev)
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want checker + dictator", len(got))
	}

	checker, dictator := got[0], got[1]
	if checker.OrderPoints != 12 {
		t.Errorf("checker orderPoints = %v, want 12", checker.OrderPoints)
	}
	if dictator.UserID != "dict-1" || dictator.Role != model.RoleDictator {
		t.Errorf("dictator record = %s/%s, want dict-1/dictator", dictator.UserID, dictator.Role)
	}
	if dictator.OrderPoints != 9 {
		t.Errorf("dictator orderPoints = %v, want 9 (75%% of 12)", dictator.OrderPoints)
	}
	if dictator.CreditRole != model.RoleChecker {
		t.Errorf("dictator creditRole = %s, want checker (primary role)", dictator.CreditRole)
	}
	// 唱检不承载货量，避免订单体量重复统计
	if dictator.Positions != 0 || dictator.Units != 0 {
		t.Errorf("dictator volume = %d/%d, want 0/0", dictator.Positions, dictator.Units)
	}
}

func TestProcessEventSkipRules(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	p, _ := newTestPipeline(records)

	cases := []struct {
		name string
		ev   *model.TaskCompletionEvent
	}{
		{"missing user", &model.TaskCompletionEvent{TaskID: "T-1", RoleType: model.RoleCollector}},
		{"missing task", &model.TaskCompletionEvent{UserID: "u1", RoleType: model.RoleCollector}},
		{"admin role", &model.TaskCompletionEvent{TaskID: "T-1", UserID: "u1", RoleType: model.RoleAdmin}},
		{"standalone dictator event", &model.TaskCompletionEvent{TaskID: "T-1", UserID: "u1", RoleType: model.RoleDictator}},
		{"unknown role", &model.TaskCompletionEvent{TaskID: "T-1", UserID: "u1", RoleType: "ghost"}},
	}

	for _, tc := range cases {
		got, err := p.ProcessEvent(tc.ev)
		if err != nil {
			t.Errorf("%s: error = %v, want skip without error", tc.name, err)
		}
		if got != nil {
			t.Errorf("%s: records = %v, want nil (skipped)", tc.name, got)
		}
	}
	if len(records.records) != 0 {
		t.Errorf("stored records = %d, want 0", len(records.records))
	}
}

func TestProcessEventNormLookupFailureSkips(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	norms := scoring.NewNormService(&stubNormStore{err: errors.New("db locked")})
	p := NewPipeline(records, norms, nil, scoring.DefaultConfig())

	got, err := p.ProcessEvent(collectorEvent())
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v, want skip without error", err)
	}
	if got != nil {
		t.Errorf("records = %v, want nil (skipped)", got)
	}
}

func TestProcessEventMissingPickTime(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	p, diff := newTestPipeline(records)

	ev := collectorEvent()
	ev.StartedAt = nil // 缺起点：任务级与订单级时长都缺

	got, err := p.ProcessEvent(ev)
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	r := got[0]
	// 缺时长按效率 1 记分，不算错误
	if r.EfficiencyClamped == nil || *r.EfficiencyClamped != 1 {
		t.Errorf("efficiencyClamped = %v, want 1", r.EfficiencyClamped)
	}
	if r.OrderPoints != 10 {
		t.Errorf("orderPoints = %v, want 10", r.OrderPoints)
	}
	// 缺任务时长时不产生难度观测
	if diff.applied != 0 {
		t.Errorf("difficulty observations = %d, want 0", diff.applied)
	}
}

type memAggs struct {
	dailies   map[string]*model.DailyAggregate
	monthlies map[string]*model.MonthlyAggregate
}

func newMemAggs() *memAggs {
	return &memAggs{
		dailies:   map[string]*model.DailyAggregate{},
		monthlies: map[string]*model.MonthlyAggregate{},
	}
}

func dailyMapKey(userID string, role model.RoleType, date string) string {
	return userID + "|" + string(role) + "|" + date
}

func (m *memAggs) UpsertDaily(agg *model.DailyAggregate) error {
	k := dailyMapKey(agg.UserID, agg.Role, agg.Date)
	if old, ok := m.dailies[k]; ok {
		agg.Rank = old.Rank
	}
	cp := *agg
	m.dailies[k] = &cp
	return nil
}

func (m *memAggs) DeleteDailyExcept(date string, keep map[string]bool) error {
	for k, a := range m.dailies {
		if a.Date == date && !keep[a.UserID+"|"+string(a.Role)] {
			delete(m.dailies, k)
		}
	}
	return nil
}

func (m *memAggs) DailyByDate(date string) ([]*model.DailyAggregate, error) {
	var out []*model.DailyAggregate
	for _, a := range m.dailies {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAggs) DailyByMonth(year, month int) ([]*model.DailyAggregate, error) {
	var out []*model.DailyAggregate
	for _, a := range m.dailies {
		if a.Year == year && a.Month == month {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAggs) UpdateDailyRank(userID string, role model.RoleType, date string, rank int) error {
	if a, ok := m.dailies[dailyMapKey(userID, role, date)]; ok {
		a.Rank = rank
	}
	return nil
}

func (m *memAggs) UpsertMonthly(agg *model.MonthlyAggregate) error {
	k := agg.UserID + "|" + string(agg.Role)
	if old, ok := m.monthlies[k]; ok {
		agg.Rank = old.Rank
	}
	cp := *agg
	m.monthlies[k] = &cp
	return nil
}

func (m *memAggs) MonthlyByPeriod(year, month int) ([]*model.MonthlyAggregate, error) {
	var out []*model.MonthlyAggregate
	for _, a := range m.monthlies {
		if a.Year == year && a.Month == month {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAggs) UpdateMonthlyRank(userID string, role model.RoleType, year, month, rank int) error {
	if a, ok := m.monthlies[userID+"|"+string(role)]; ok {
		a.Rank = rank
	}
	return nil
}

func TestProcessAndRecompute(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	p, _ := newTestPipeline(records)

	aggs := newMemAggs()
	agg := aggregate.NewAggregator(records, aggs, period.NewResolver(0))

	got, err := p.ProcessAndRecompute(collectorEvent(), agg)
	if err != nil {
		t.Fatalf("ProcessAndRecompute() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}

	daily, ok := aggs.dailies[dailyMapKey("u1", model.RoleCollector, "2026-03-10")]
	if !ok {
		t.Fatal("expected daily aggregate for u1/collector/2026-03-10")
	}
	if daily.Points != 12 {
		t.Errorf("daily points = %v, want 12", daily.Points)
	}
	if len(aggs.monthlies) != 1 {
		t.Errorf("monthlies = %d, want 1", len(aggs.monthlies))
	}
}

type memJobs struct {
	created bool
	status  string
	done    int
	errs    int
}

func (m *memJobs) CreateJobLog(jobID, kind, source string) (int64, error) {
	m.created = true
	return 1, nil
}

func (m *memJobs) UpdateJobLog(id int64, totalRows, processedRows, skippedRows, errorRows int, status, errorMessage string) error {
	m.status = status
	m.done = processedRows
	m.errs = errorRows
	return nil
}

func drain(t *testing.T, ch <-chan ProgressEvent) []ProgressEvent {
	t.Helper()
	var events []ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("progress channel did not close")
		}
	}
}

func TestRecomputeRange(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	p, _ := newTestPipeline(records)
	if _, err := p.ProcessEvent(collectorEvent()); err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}

	aggs := newMemAggs()
	agg := aggregate.NewAggregator(records, aggs, period.NewResolver(0))
	jobs := &memJobs{}
	rc := NewRecomputer(agg, jobs, period.NewResolver(0))

	events := drain(t, rc.Recompute(context.Background(), "2026-03-09", "2026-03-11"))

	last := events[len(events)-1]
	if last.Type != "done" {
		t.Fatalf("last event type = %s, want done", last.Type)
	}
	report, ok := last.Data.(*RecomputeReport)
	if !ok {
		t.Fatalf("done data type = %T, want *RecomputeReport", last.Data)
	}
	if report.TotalDays != 3 || report.DoneDays != 3 || report.ErrorDays != 0 {
		t.Errorf("report = %+v, want 3/3/0 days", report)
	}
	if len(report.Months) != 1 || report.Months[0] != "2026-03" {
		t.Errorf("months = %v, want [2026-03]", report.Months)
	}
	if !jobs.created || jobs.status != "completed" || jobs.done != 3 {
		t.Errorf("job log = %+v, want created/completed/3", jobs)
	}

	daily, ok := aggs.dailies[dailyMapKey("u1", model.RoleCollector, "2026-03-10")]
	if !ok || daily.Points != 12 {
		t.Errorf("daily after recompute = %+v, want points 12", daily)
	}
}

func TestRecomputeInvalidRange(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	aggs := newMemAggs()
	agg := aggregate.NewAggregator(records, aggs, period.NewResolver(0))
	rc := NewRecomputer(agg, &memJobs{}, period.NewResolver(0))

	events := drain(t, rc.Recompute(context.Background(), "2026-03-11", "2026-03-09"))
	if len(events) != 1 || events[0].Type != "error" {
		t.Fatalf("events = %v, want single error", events)
	}
}

func TestRecomputeCanceled(t *testing.T) {
	t.Parallel()
	records := &memRecords{}
	aggs := newMemAggs()
	agg := aggregate.NewAggregator(records, aggs, period.NewResolver(0))
	jobs := &memJobs{}
	rc := NewRecomputer(agg, jobs, period.NewResolver(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := drain(t, rc.Recompute(ctx, "2026-01-01", "2026-12-31"))
	last := events[len(events)-1]
	report, ok := last.Data.(*RecomputeReport)
	if !ok || !report.Canceled {
		t.Fatalf("report = %+v, want canceled", last.Data)
	}
	if jobs.status != "canceled" {
		t.Errorf("job status = %s, want canceled", jobs.status)
	}
}
