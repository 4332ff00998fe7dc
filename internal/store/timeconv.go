package store

import (
	"database/sql"
	"strings"
	"time"
)

// parseTimestamp 解析 SQLite CURRENT_TIMESTAMP 文本；解析失败返回零值
func parseTimestamp(s string) time.Time {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// unixOrNil 时间指针转 Unix 秒（可空）
func unixOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// timeOrNil Unix 秒转时间指针（UTC）
func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// floatOrNil 可空浮点列转指针
func floatOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// nilOrFloat 指针转可空浮点列
func nilOrFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
