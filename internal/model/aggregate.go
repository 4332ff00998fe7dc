package model

import "time"

// DailyAggregate 某用户某自然日的绩效汇总（user + role + date 唯一）
type DailyAggregate struct {
	ID     int64    `json:"id"`
	UserID string   `json:"userId"`
	Role   RoleType `json:"role"` // 积分入榜角色
	Date   string   `json:"date"` // YYYY-MM-DD（按业务时区）
	Year   int      `json:"year"`
	Month  int      `json:"month"`

	Positions      int     `json:"positions"`
	Units          int     `json:"units"`
	Orders         int     `json:"orders"`
	Tasks          int     `json:"tasks"`
	PickTimeSec    float64 `json:"pickTimeSec"`
	GapTimeSec     float64 `json:"gapTimeSec"`
	ElapsedTimeSec float64 `json:"elapsedTimeSec"`

	// 按 pickTime 加权的平均效率；无有效时长时为 NULL
	EfficiencyAvg *float64 `json:"efficiencyAvg"`

	Points float64 `json:"points"`
	Rank   int     `json:"rank"` // 1..10 十分位名次，未参与排名时为 0

	UpdatedAt time.Time `json:"updatedAt"`
}

// PPH 每小时 position 数（计算字段，分母为零时 NULL）
func (a *DailyAggregate) PPH() *float64 {
	return ratePerHour(float64(a.Positions), a.PickTimeSec)
}

// UPH 每小时 unit 数（计算字段，分母为零时 NULL）
func (a *DailyAggregate) UPH() *float64 {
	return ratePerHour(float64(a.Units), a.PickTimeSec)
}

// GapShare 空闲时间占比（计算字段，分母为零时 NULL）
func (a *DailyAggregate) GapShare() *float64 {
	if a.ElapsedTimeSec <= 0 {
		return nil
	}
	v := a.GapTimeSec / a.ElapsedTimeSec
	return &v
}

// MonthlyAggregate 某用户某自然月的绩效汇总，仅由 DailyAggregate 上卷而来
type MonthlyAggregate struct {
	ID     int64    `json:"id"`
	UserID string   `json:"userId"`
	Role   RoleType `json:"role"`
	Year   int      `json:"year"`
	Month  int      `json:"month"`

	Positions      int     `json:"positions"`
	Units          int     `json:"units"`
	Orders         int     `json:"orders"`
	Tasks          int     `json:"tasks"`
	Days           int     `json:"days"` // 有产出的天数
	PickTimeSec    float64 `json:"pickTimeSec"`
	GapTimeSec     float64 `json:"gapTimeSec"`
	ElapsedTimeSec float64 `json:"elapsedTimeSec"`

	EfficiencyAvg *float64 `json:"efficiencyAvg"`

	Points float64 `json:"points"`
	Rank   int     `json:"rank"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// PPH 每小时 position 数（计算字段，分母为零时 NULL）
func (a *MonthlyAggregate) PPH() *float64 {
	return ratePerHour(float64(a.Positions), a.PickTimeSec)
}

// UPH 每小时 unit 数（计算字段，分母为零时 NULL）
func (a *MonthlyAggregate) UPH() *float64 {
	return ratePerHour(float64(a.Units), a.PickTimeSec)
}

// GapShare 空闲时间占比（计算字段，分母为零时 NULL）
func (a *MonthlyAggregate) GapShare() *float64 {
	if a.ElapsedTimeSec <= 0 {
		return nil
	}
	v := a.GapTimeSec / a.ElapsedTimeSec
	return &v
}

func ratePerHour(count, seconds float64) *float64 {
	if seconds <= 0 {
		return nil
	}
	v := count * 3600 / seconds
	return &v
}
