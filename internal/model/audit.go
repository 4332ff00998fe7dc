package model

import "time"

// 公平性审计的用户级信号类型
const (
	FlagGapShareHigh   = "gap_share_high"        // 空闲占比显著高于同组中位数
	FlagMultiWarehouse = "multi_warehouse_heavy" // 跨库任务占比过高
	FlagClampSaturated = "efficiency_clamped"    // 效率值大量顶在截断边界
)

// CohortStats 同组（按角色）基线统计
type CohortStats struct {
	Cohort string `json:"cohort"` // collector/checker/dictator/overall
	Users  int    `json:"users"`
	Tasks  int    `json:"tasks"`

	PPHP50           *float64 `json:"pphP50"`
	PPHP90           *float64 `json:"pphP90"`
	GapShareP50      *float64 `json:"gapShareP50"`
	GapShareP90      *float64 `json:"gapShareP90"`
	PointsPerHourP50 *float64 `json:"pointsPerHourP50"`
	PointsPerHourP90 *float64 `json:"pointsPerHourP90"`
}

// UserFlag 用户级规则告警，每条对应一个具体的系数/定额调整建议
type UserFlag struct {
	UserID     string  `json:"userId"`
	Cohort     string  `json:"cohort"`
	Kind       string  `json:"kind"`
	Value      float64 `json:"value"`
	Threshold  float64 `json:"threshold"`
	Suggestion string  `json:"suggestion"`
}

// CorrelationSignals 积分与产量的相关性信号
type CorrelationSignals struct {
	PointsVsPositions *float64 `json:"pointsVsPositions"`
	PointsVsUnits     *float64 `json:"pointsVsUnits"`
}

// AuditReport 公平性审计报告：一次数据扫描产出的一致性快照
type AuditReport struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	GeneratedAt time.Time `json:"generatedAt"`

	UserCount int      `json:"userCount"`
	TaskCount int      `json:"taskCount"`
	Gini      *float64 `json:"gini"` // 总积分基尼系数，空人群为 NULL

	Correlations    CorrelationSignals `json:"correlations"`
	Cohorts         []CohortStats      `json:"cohorts"`
	Flags           []UserFlag         `json:"flags"`
	Recommendations []string           `json:"recommendations"`

	// 叙述性结论（由同一份数据渲染，不另行扫描）
	Narrative string `json:"narrative"`
}
