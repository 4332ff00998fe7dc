package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Grangy/specialist-warehouse-sub000/internal/aggregate"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

// JobLogStore 批量任务日志接口
type JobLogStore interface {
	CreateJobLog(jobID, kind, source string) (int64, error)
	UpdateJobLog(id int64, totalRows, processedRows, skippedRows, errorRows int, status, errorMessage string) error
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/info/day_done/warning/done/error
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data"`    // 附加数据
	Timestamp time.Time   `json:"timestamp"`
}

// RecomputeReport 批量重算汇总
type RecomputeReport struct {
	JobID     string        `json:"jobId"`
	FromDate  string        `json:"fromDate"`
	ToDate    string        `json:"toDate"`
	TotalDays int           `json:"totalDays"`
	DoneDays  int           `json:"doneDays"`
	ErrorDays int           `json:"errorDays"`
	Months    []string      `json:"months"`
	Duration  time.Duration `json:"duration"`
	Canceled  bool          `json:"canceled"`
}

// Recomputer 批量重算协调器：逐日全量重算，最后统一上卷受影响的月份
type Recomputer struct {
	agg      *aggregate.Aggregator
	jobs     JobLogStore
	resolver period.Resolver
}

// NewRecomputer 创建批量重算协调器
func NewRecomputer(agg *aggregate.Aggregator, jobs JobLogStore, resolver period.Resolver) *Recomputer {
	return &Recomputer{agg: agg, jobs: jobs, resolver: resolver}
}

// Recompute 重算日期区间（含首尾），返回进度通道。
// 通道在任务结束后关闭；ctx 取消时在下一个日界停下
func (r *Recomputer) Recompute(ctx context.Context, fromDate, toDate string) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		r.doRecompute(ctx, fromDate, toDate, progressChan)
	}()

	return progressChan
}

func (r *Recomputer) doRecompute(ctx context.Context, fromDate, toDate string, progressChan chan ProgressEvent) {
	startTime := time.Now()
	jobID := uuid.New().String()

	rng, err := r.resolver.ResolveDates(fromDate, toDate)
	if err != nil {
		r.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("日期区间无效: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	logID, err := r.jobs.CreateJobLog(jobID, "recompute", fmt.Sprintf("%s..%s", fromDate, toDate))
	if err != nil {
		r.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("创建任务日志失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	// 展开区间内的全部自然日
	var days []string
	for d := rng.From; d.Before(rng.To); d = d.AddDate(0, 0, 1) {
		days = append(days, r.resolver.DayKey(d))
	}

	report := &RecomputeReport{
		JobID:     jobID,
		FromDate:  fromDate,
		ToDate:    toDate,
		TotalDays: len(days),
	}

	r.sendProgress(progressChan, ProgressEvent{
		Type:    "start",
		Message: fmt.Sprintf("开始重算 %d 天", len(days)),
		Data: map[string]interface{}{
			"job_id":     jobID,
			"total_days": len(days),
		},
		Timestamp: time.Now(),
	})

	type ym struct{ year, month int }
	months := map[ym]bool{}
	monthOrder := []ym{}

	for _, day := range days {
		select {
		case <-ctx.Done():
			report.Canceled = true
		default:
		}
		if report.Canceled {
			break
		}

		if err := r.agg.RecomputeDay(day); err != nil {
			report.ErrorDays++
			r.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("重算 %s 失败: %v", day, err),
				Timestamp: time.Now(),
			})
			continue
		}
		report.DoneDays++

		dayRng, _ := r.resolver.DayRange(day)
		year, month := r.resolver.YearMonth(dayRng.From)
		k := ym{year: year, month: month}
		if !months[k] {
			months[k] = true
			monthOrder = append(monthOrder, k)
		}

		r.sendProgress(progressChan, ProgressEvent{
			Type:    "day_done",
			Message: fmt.Sprintf("重算完成: %s", day),
			Data: map[string]interface{}{
				"date": day,
				"done": report.DoneDays,
			},
			Timestamp: time.Now(),
		})
	}

	// 受影响的月份统一上卷一次，避免每天都重排月榜
	for _, k := range monthOrder {
		if err := r.agg.RecomputeMonth(k.year, k.month); err != nil {
			report.ErrorDays++
			r.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("月上卷 %d-%02d 失败: %v", k.year, k.month, err),
				Timestamp: time.Now(),
			})
			continue
		}
		report.Months = append(report.Months, fmt.Sprintf("%04d-%02d", k.year, k.month))
	}

	report.Duration = time.Since(startTime)

	status := "completed"
	errMsg := ""
	if report.Canceled {
		status = "canceled"
	} else if report.ErrorDays > 0 {
		status = "completed_with_errors"
		errMsg = fmt.Sprintf("%d day(s) failed", report.ErrorDays)
	}
	if err := r.jobs.UpdateJobLog(logID, report.TotalDays, report.DoneDays, 0, report.ErrorDays, status, errMsg); err != nil {
		r.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("更新任务日志失败: %v", err),
			Timestamp: time.Now(),
		})
	}

	r.sendProgress(progressChan, ProgressEvent{
		Type:      "done",
		Message:   fmt.Sprintf("重算结束: %d/%d 天", report.DoneDays, report.TotalDays),
		Data:      report,
		Timestamp: time.Now(),
	})
}

// sendProgress 发送进度事件，通道满时丢弃
func (r *Recomputer) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}
