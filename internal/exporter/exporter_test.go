package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

func TestExportAuditReport(t *testing.T) {
	t.Parallel()

	gini := 0.35
	pph := 70.0
	report := &model.AuditReport{
		From:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
		UserCount:   12,
		TaskCount:   340,
		Gini:        &gini,
		Cohorts: []model.CohortStats{
			{Cohort: "collector", Users: 8, Tasks: 200, PPHP50: &pph},
			{Cohort: "overall", Users: 12, Tasks: 340},
		},
		Flags: []model.UserFlag{
			{UserID: "u7", Cohort: "collector", Kind: model.FlagGapShareHigh, Value: 0.4, Threshold: 0.26, Suggestion: "排查任务下发节奏"},
		},
		Recommendations: []string{"建议上调 coefficientK"},
		Narrative:       "本期积分分布总体均衡",
	}
	difficulty := []*model.PositionDifficultyRecord{
		{SKU: "SKU-1", Warehouse: "WH-1", TaskCount: 4, SumSecPerUnit: 60, SumSecPerPos: 200, TotalUnits: 40},
	}

	outPath := filepath.Join(t.TempDir(), "audit.xlsx")
	if err := NewExporter().Export(report, difficulty, outPath); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"概览", "分组基线", "告警明细", "货位难度"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i, name := range want {
		if sheets[i] != name {
			t.Errorf("sheet[%d] = %s, want %s", i, sheets[i], name)
		}
	}

	rows, err := f.GetRows("告警明细")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("flag rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "u7" || rows[1][2] != model.FlagGapShareHigh {
		t.Errorf("flag row = %v, want u7/gap_share_high", rows[1])
	}

	diffRows, err := f.GetRows("货位难度")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(diffRows) != 2 {
		t.Fatalf("difficulty rows = %d, want header + 1", len(diffRows))
	}
	// 平均单件耗时 60/4 = 15
	if diffRows[1][4] != "15" {
		t.Errorf("avgSecPerUnit cell = %q, want 15", diffRows[1][4])
	}
}

func TestExportEmptyReport(t *testing.T) {
	t.Parallel()

	report := &model.AuditReport{
		GeneratedAt: time.Now(),
		Narrative:   "区间内无任务记录",
	}
	outPath := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := NewExporter().Export(report, nil, outPath); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	if got := len(f.GetSheetList()); got != 4 {
		t.Errorf("sheets = %d, want 4 even when empty", got)
	}
}
