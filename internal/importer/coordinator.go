package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/Grangy/specialist-warehouse-sub000/internal/aggregate"
	"github.com/Grangy/specialist-warehouse-sub000/internal/ingest"
	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

// Coordinator 导入协调器：解析完成事件工作簿，逐事件走评分管线，
// 最后统一重算受影响的日与月
type Coordinator struct {
	pipeline *ingest.Pipeline
	agg      *aggregate.Aggregator
	jobs     ingest.JobLogStore
	resolver period.Resolver
}

// NewCoordinator 创建导入协调器
func NewCoordinator(pipeline *ingest.Pipeline, agg *aggregate.Aggregator, jobs ingest.JobLogStore, resolver period.Resolver) *Coordinator {
	return &Coordinator{pipeline: pipeline, agg: agg, jobs: jobs, resolver: resolver}
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath  string
	Recompute bool // 导入后是否重算受影响的日/月
}

// ImportReport 导入汇总
type ImportReport struct {
	JobID       string        `json:"jobId"`
	Filename    string        `json:"filename"`
	TotalSheets int           `json:"totalSheets"`
	TotalRows   int           `json:"totalRows"`
	Processed   int           `json:"processed"`
	Skipped     int           `json:"skipped"`
	ErrorRows   int           `json:"errorRows"`
	Issues      []RowIssue    `json:"issues,omitempty"`
	Days        []string      `json:"days"`
	Duration    time.Duration `json:"duration"`
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ingest.ProgressEvent {
	progressChan := make(chan ingest.ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, progressChan chan ingest.ProgressEvent) {
	startTime := time.Now()
	jobID := uuid.New().String()
	report := &ImportReport{
		JobID:    jobID,
		Filename: filepath.Base(opts.FilePath),
	}

	c.sendProgress(progressChan, ingest.ProgressEvent{
		Type:      "start",
		Message:   "开始导入完成事件工作簿",
		Data:      map[string]string{"filename": report.Filename, "job_id": jobID},
		Timestamp: time.Now(),
	})

	logID, err := c.jobs.CreateJobLog(jobID, "import", report.Filename)
	if err != nil {
		c.sendProgress(progressChan, ingest.ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("创建任务日志失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	file, err := excelize.OpenFile(opts.FilePath)
	if err != nil {
		c.sendProgress(progressChan, ingest.ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("打开文件失败: %v", err),
			Timestamp: time.Now(),
		})
		_ = c.jobs.UpdateJobLog(logID, 0, 0, 0, 0, "failed", err.Error())
		return
	}
	defer file.Close()

	// 第一遍：识别并解析全部工作表
	var events []*model.TaskCompletionEvent
	var lines []taskLineRow

	sheetList := file.GetSheetList()
	report.TotalSheets = len(sheetList)

	for _, sheetName := range sheetList {
		rows, err := file.GetRows(sheetName)
		if err != nil || len(rows) == 0 {
			c.sendProgress(progressChan, ingest.ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("跳过空工作表: %s", sheetName),
				Timestamp: time.Now(),
			})
			continue
		}

		switch RecognizeSheet(rows[0]) {
		case SheetTypeEvents:
			evs, issues, err := ParseEventSheet(file, sheetName, c.resolver.Location())
			if err != nil {
				c.sendProgress(progressChan, ingest.ProgressEvent{
					Type:      "warning",
					Message:   fmt.Sprintf("解析工作表 %s 失败: %v", sheetName, err),
					Timestamp: time.Now(),
				})
				continue
			}
			events = append(events, evs...)
			report.Issues = append(report.Issues, issues...)
			report.TotalRows += len(evs) + len(issues)
			c.sendProgress(progressChan, ingest.ProgressEvent{
				Type:    "sheet_done",
				Message: fmt.Sprintf("工作表 %s: %d 条事件, %d 条坏行", sheetName, len(evs), len(issues)),
				Data: map[string]interface{}{
					"sheet_name": sheetName,
					"events":     len(evs),
					"bad_rows":   len(issues),
				},
				Timestamp: time.Now(),
			})
		case SheetTypeLines:
			ls, issues, err := ParseLineSheet(file, sheetName)
			if err != nil {
				c.sendProgress(progressChan, ingest.ProgressEvent{
					Type:      "warning",
					Message:   fmt.Sprintf("解析明细表 %s 失败: %v", sheetName, err),
					Timestamp: time.Now(),
				})
				continue
			}
			lines = append(lines, ls...)
			report.Issues = append(report.Issues, issues...)
		default:
			c.sendProgress(progressChan, ingest.ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("无法识别工作表: %s", sheetName),
				Timestamp: time.Now(),
			})
		}
	}

	AttachSiblings(events)
	AttachLines(events, lines)

	// 第二遍：逐事件走评分管线
	days := map[string]bool{}
	for _, ev := range events {
		select {
		case <-ctx.Done():
			c.sendProgress(progressChan, ingest.ProgressEvent{
				Type:      "warning",
				Message:   "导入被取消",
				Timestamp: time.Now(),
			})
			_ = c.jobs.UpdateJobLog(logID, report.TotalRows, report.Processed, report.Skipped, report.ErrorRows, "canceled", "")
			return
		default:
		}

		recs, err := c.pipeline.ProcessEvent(ev)
		if err != nil {
			report.ErrorRows++
			c.sendProgress(progressChan, ingest.ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("事件 %s 落库失败: %v", ev.TaskID, err),
				Timestamp: time.Now(),
			})
			continue
		}
		if len(recs) == 0 {
			report.Skipped++
			continue
		}
		report.Processed++
		if at, ok := recs[0].AttributionDay(); ok {
			days[c.resolver.DayKey(at)] = true
		}
	}
	report.ErrorRows += len(report.Issues)

	// 导入后统一重算，比逐事件重算省一个数量级的重排
	if opts.Recompute && len(days) > 0 {
		report.Days = make([]string, 0, len(days))
		for d := range days {
			report.Days = append(report.Days, d)
		}
		sort.Strings(report.Days)

		type ym struct{ year, month int }
		months := map[ym]bool{}
		monthOrder := []ym{}

		for _, day := range report.Days {
			if err := c.agg.RecomputeDay(day); err != nil {
				c.sendProgress(progressChan, ingest.ProgressEvent{
					Type:      "warning",
					Message:   fmt.Sprintf("重算 %s 失败: %v", day, err),
					Timestamp: time.Now(),
				})
				continue
			}
			rng, _ := c.resolver.DayRange(day)
			year, month := c.resolver.YearMonth(rng.From)
			k := ym{year: year, month: month}
			if !months[k] {
				months[k] = true
				monthOrder = append(monthOrder, k)
			}
		}
		for _, k := range monthOrder {
			if err := c.agg.RecomputeMonth(k.year, k.month); err != nil {
				c.sendProgress(progressChan, ingest.ProgressEvent{
					Type:      "warning",
					Message:   fmt.Sprintf("月上卷 %d-%02d 失败: %v", k.year, k.month, err),
					Timestamp: time.Now(),
				})
			}
		}
	}

	report.Duration = time.Since(startTime)

	status := "completed"
	if report.ErrorRows > 0 {
		status = "completed_with_errors"
	}
	if err := c.jobs.UpdateJobLog(logID, report.TotalRows, report.Processed, report.Skipped, report.ErrorRows, status, ""); err != nil {
		c.sendProgress(progressChan, ingest.ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("更新任务日志失败: %v", err),
			Timestamp: time.Now(),
		})
	}

	c.sendProgress(progressChan, ingest.ProgressEvent{
		Type:      "done",
		Message:   fmt.Sprintf("导入完成: %d 条处理, %d 条跳过, %d 条错误", report.Processed, report.Skipped, report.ErrorRows),
		Data:      report,
		Timestamp: time.Now(),
	})
}

// sendProgress 发送进度事件，通道满时丢弃
func (c *Coordinator) sendProgress(ch chan ingest.ProgressEvent, event ingest.ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}
