package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

const (
	sheetSummary    = "概览"
	sheetCohorts    = "分组基线"
	sheetFlags      = "告警明细"
	sheetDifficulty = "货位难度"
)

// Exporter 审计报告导出器：把一份审计报告连同货位难度快照
// 写成多工作表的 Excel 文件
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export 写出报告到 outPath
func (e *Exporter) Export(report *model.AuditReport, difficulty []*model.PositionDifficultyRecord, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeSummary(f, report); err != nil {
		return err
	}
	if err := e.writeCohorts(f, report.Cohorts); err != nil {
		return err
	}
	if err := e.writeFlags(f, report.Flags); err != nil {
		return err
	}
	if err := e.writeDifficulty(f, difficulty); err != nil {
		return err
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to save export file: %w", err)
	}
	return nil
}

func (e *Exporter) writeSummary(f *excelize.File, report *model.AuditReport) error {
	f.SetSheetName("Sheet1", sheetSummary)

	rows := [][]interface{}{
		{"统计区间", fmt.Sprintf("%s ~ %s", report.From.Format("2006-01-02 15:04"), report.To.Format("2006-01-02 15:04"))},
		{"生成时间", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"参与用户数", report.UserCount},
		{"任务记录数", report.TaskCount},
		{"积分基尼系数", floatCell(report.Gini)},
		{"积分-位数相关性", floatCell(report.Correlations.PointsVsPositions)},
		{"积分-件数相关性", floatCell(report.Correlations.PointsVsUnits)},
		{},
		{"结论"},
		{report.Narrative},
	}
	for _, rec := range report.Recommendations {
		rows = append(rows, []interface{}{"建议", rec})
	}

	return writeRows(f, sheetSummary, rows)
}

func (e *Exporter) writeCohorts(f *excelize.File, cohorts []model.CohortStats) error {
	if _, err := f.NewSheet(sheetCohorts); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetCohorts, err)
	}

	rows := [][]interface{}{
		{"组", "用户数", "任务数", "PPH中位数", "PPH P90", "空闲占比中位数", "空闲占比 P90", "时积分中位数", "时积分 P90"},
	}
	for _, c := range cohorts {
		rows = append(rows, []interface{}{
			c.Cohort, c.Users, c.Tasks,
			floatCell(c.PPHP50), floatCell(c.PPHP90),
			floatCell(c.GapShareP50), floatCell(c.GapShareP90),
			floatCell(c.PointsPerHourP50), floatCell(c.PointsPerHourP90),
		})
	}

	return writeRows(f, sheetCohorts, rows)
}

func (e *Exporter) writeFlags(f *excelize.File, flags []model.UserFlag) error {
	if _, err := f.NewSheet(sheetFlags); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetFlags, err)
	}

	rows := [][]interface{}{
		{"用户", "组", "信号", "观测值", "阈值", "建议"},
	}
	for _, fl := range flags {
		rows = append(rows, []interface{}{
			fl.UserID, fl.Cohort, fl.Kind, fl.Value, fl.Threshold, fl.Suggestion,
		})
	}

	return writeRows(f, sheetFlags, rows)
}

func (e *Exporter) writeDifficulty(f *excelize.File, records []*model.PositionDifficultyRecord) error {
	if _, err := f.NewSheet(sheetDifficulty); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetDifficulty, err)
	}

	rows := [][]interface{}{
		{"SKU", "仓库", "观测任务数", "累计件数", "平均单件耗时(秒)", "平均单行耗时(秒)"},
	}
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.SKU, r.Warehouse, r.TaskCount, r.TotalUnits,
			floatCell(r.AvgSecPerUnit()), floatCell(r.AvgSecPerPos()),
		})
	}

	return writeRows(f, sheetDifficulty, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

// floatCell 可空数值单元格：NULL 显示为空
func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
