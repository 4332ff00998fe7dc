package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// SheetType 工作表类型
type SheetType string

const (
	SheetTypeEvents  SheetType = "events"  // 完成事件表
	SheetTypeLines   SheetType = "lines"   // SKU 明细表
	SheetTypeUnknown SheetType = "unknown" // 无法识别
)

// RowIssue 单行解析问题
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// RecognizeSheet 按表头识别工作表类型：事件表必须有任务号和执行人，
// 明细表必须有任务号和 SKU
func RecognizeSheet(headers []string) SheetType {
	cols := map[string]bool{}
	for _, h := range headers {
		cols[normalizeHeader(h)] = true
	}
	if cols["taskid"] && cols["sku"] {
		return SheetTypeLines
	}
	if cols["taskid"] && cols["userid"] {
		return SheetTypeEvents
	}
	return SheetTypeUnknown
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// columnIndex 表头列名到下标的映射
func columnIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseEventTime 解析时间单元格；空值返回 nil，不报错。
// 支持业务时区的本地格式与 RFC3339
func parseEventTime(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006/01/02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("unrecognized time %q", s)
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %d", v)
	}
	return v, nil
}

// ParseEventSheet 解析完成事件表。坏行跳过并记录原因，不中断整表
func ParseEventSheet(f *excelize.File, sheetName string, loc *time.Location) ([]*model.TaskCompletionEvent, []RowIssue, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, nil, nil
	}

	idx := columnIndex(rows[0])
	var events []*model.TaskCompletionEvent
	var issues []RowIssue

	for i, row := range rows[1:] {
		rowNum := i + 2

		ev := &model.TaskCompletionEvent{
			TaskID:     cell(row, idx, "taskid"),
			UserID:     cell(row, idx, "userid"),
			RoleType:   model.RoleType(strings.ToLower(cell(row, idx, "role"))),
			ShipmentID: cell(row, idx, "shipmentid"),
			Warehouse:  cell(row, idx, "warehouse"),
			DictatorID: cell(row, idx, "dictatorid"),
		}
		if v := cell(row, idx, "dictatorrole"); v != "" {
			ev.DictatorRole = model.RoleType(strings.ToLower(v))
		}

		if ev.TaskID == "" || ev.UserID == "" {
			issues = append(issues, RowIssue{Row: rowNum, Reason: "缺少任务号或执行人"})
			continue
		}
		if !ev.RoleType.Valid() {
			issues = append(issues, RowIssue{Row: rowNum, Reason: fmt.Sprintf("未知角色 %q", cell(row, idx, "role"))})
			continue
		}

		var parseErr error
		if ev.StartedAt, parseErr = parseEventTime(cell(row, idx, "startedat"), loc); parseErr == nil {
			if ev.CompletedAt, parseErr = parseEventTime(cell(row, idx, "completedat"), loc); parseErr == nil {
				ev.ConfirmedAt, parseErr = parseEventTime(cell(row, idx, "confirmedat"), loc)
			}
		}
		if parseErr != nil {
			issues = append(issues, RowIssue{Row: rowNum, Reason: parseErr.Error()})
			continue
		}

		if ev.Positions, parseErr = parseCount(cell(row, idx, "positions")); parseErr == nil {
			ev.Units, parseErr = parseCount(cell(row, idx, "units"))
		}
		if parseErr != nil {
			issues = append(issues, RowIssue{Row: rowNum, Reason: parseErr.Error()})
			continue
		}

		events = append(events, ev)
	}

	return events, issues, nil
}

// taskLineRow 明细表一行：挂到对应任务的事件上
type taskLineRow struct {
	TaskID string
	Line   model.TaskLine
}

// ParseLineSheet 解析 SKU 明细表
func ParseLineSheet(f *excelize.File, sheetName string) ([]taskLineRow, []RowIssue, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, nil, nil
	}

	idx := columnIndex(rows[0])
	var lines []taskLineRow
	var issues []RowIssue

	for i, row := range rows[1:] {
		rowNum := i + 2
		taskID := cell(row, idx, "taskid")
		sku := cell(row, idx, "sku")
		if taskID == "" || sku == "" {
			issues = append(issues, RowIssue{Row: rowNum, Reason: "缺少任务号或 SKU"})
			continue
		}
		units, err := parseCount(cell(row, idx, "units"))
		if err != nil {
			issues = append(issues, RowIssue{Row: rowNum, Reason: err.Error()})
			continue
		}
		lines = append(lines, taskLineRow{
			TaskID: taskID,
			Line: model.TaskLine{
				SKU:       sku,
				Warehouse: cell(row, idx, "warehouse"),
				Units:     units,
			},
		})
	}

	return lines, issues, nil
}

// AttachSiblings 把同一 (执行人, 订单) 的任务时间戳互相挂为兄弟任务，
// 使订单级时间指标（elapsed/gap）在批量导入时也能计算
func AttachSiblings(events []*model.TaskCompletionEvent) {
	type groupKey struct{ userID, shipmentID string }
	groups := map[groupKey][]model.SiblingTask{}

	for _, ev := range events {
		if ev.ShipmentID == "" {
			continue
		}
		k := groupKey{userID: ev.UserID, shipmentID: ev.ShipmentID}
		groups[k] = append(groups[k], model.SiblingTask{
			TaskID:      ev.TaskID,
			Warehouse:   ev.Warehouse,
			StartedAt:   ev.StartedAt,
			CompletedAt: ev.CompletedAt,
			ConfirmedAt: ev.ConfirmedAt,
		})
	}

	for _, ev := range events {
		if ev.ShipmentID == "" {
			continue
		}
		k := groupKey{userID: ev.UserID, shipmentID: ev.ShipmentID}
		if sibs := groups[k]; len(sibs) > 1 {
			ev.Siblings = sibs
		}
	}
}

// AttachLines 把明细行挂到对应任务的事件上
func AttachLines(events []*model.TaskCompletionEvent, lines []taskLineRow) {
	byTask := map[string][]*model.TaskCompletionEvent{}
	for _, ev := range events {
		byTask[ev.TaskID] = append(byTask[ev.TaskID], ev)
	}
	for _, l := range lines {
		for _, ev := range byTask[l.TaskID] {
			line := l.Line
			if line.Warehouse == "" {
				line.Warehouse = ev.Warehouse
			}
			ev.Lines = append(ev.Lines, line)
		}
	}
}
