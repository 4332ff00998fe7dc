package period

import (
	"fmt"
	"time"
)

// Range 绝对时间区间，左闭右开 [From, To)
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains 时刻是否落在区间内
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Resolver 周期解析器：基于固定的业务时区偏移把符号周期/自然日
// 转成绝对时刻，所有调用方（审计、重算、汇总）共用同一套口径，
// 不依赖系统本地时区
type Resolver struct {
	loc *time.Location
}

// NewResolver 创建周期解析器，offsetHours 为业务时区相对 UTC 的固定偏移
func NewResolver(offsetHours int) Resolver {
	return Resolver{
		loc: time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600),
	}
}

// Location 业务时区
func (r Resolver) Location() *time.Location {
	return r.loc
}

// DayKey 时刻归属的自然日（YYYY-MM-DD）
func (r Resolver) DayKey(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02")
}

// YearMonth 时刻归属的自然年月
func (r Resolver) YearMonth(t time.Time) (year, month int) {
	lt := t.In(r.loc)
	return lt.Year(), int(lt.Month())
}

// Resolve 解析符号周期 today/week/month 为绝对区间
func (r Resolver) Resolve(symbol string, now time.Time) (Range, error) {
	lt := now.In(r.loc)
	dayStart := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, r.loc)

	switch symbol {
	case "today":
		return Range{From: dayStart, To: dayStart.AddDate(0, 0, 1)}, nil
	case "week":
		// 周一为一周的开始
		offset := (int(dayStart.Weekday()) + 6) % 7
		weekStart := dayStart.AddDate(0, 0, -offset)
		return Range{From: weekStart, To: weekStart.AddDate(0, 0, 7)}, nil
	case "month":
		monthStart := time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, r.loc)
		return Range{From: monthStart, To: monthStart.AddDate(0, 1, 0)}, nil
	}
	return Range{}, fmt.Errorf("unknown period symbol: %q", symbol)
}

// ResolveDates 解析显式日期区间（YYYY-MM-DD，含首尾两天）
func (r Resolver) ResolveDates(from, to string) (Range, error) {
	f, err := time.ParseInLocation("2006-01-02", from, r.loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	t, err := time.ParseInLocation("2006-01-02", to, r.loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	if t.Before(f) {
		return Range{}, fmt.Errorf("date range reversed: %s > %s", from, to)
	}
	return Range{From: f, To: t.AddDate(0, 0, 1)}, nil
}

// DayRange 某自然日（YYYY-MM-DD）的绝对区间
func (r Resolver) DayRange(dayKey string) (Range, error) {
	d, err := time.ParseInLocation("2006-01-02", dayKey, r.loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid day %q: %w", dayKey, err)
	}
	return Range{From: d, To: d.AddDate(0, 0, 1)}, nil
}

// MonthRange 某自然月的绝对区间
func (r Resolver) MonthRange(year, month int) Range {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, r.loc)
	return Range{From: start, To: start.AddDate(0, 1, 0)}
}
