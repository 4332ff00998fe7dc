package model

import "time"

// RoleType 作业角色类型
type RoleType string

const (
	RoleCollector RoleType = "collector" // 拣货员
	RoleChecker   RoleType = "checker"   // 复核员
	RoleDictator  RoleType = "dictator"  // 唱检员（复核时的辅助报读角色）
	RoleAdmin     RoleType = "admin"     // 管理员（不参与绩效统计）
)

// Valid 是否为已知角色
func (r RoleType) Valid() bool {
	switch r {
	case RoleCollector, RoleChecker, RoleDictator, RoleAdmin:
		return true
	}
	return false
}

// SiblingTask 同一订单内、同一用户的兄弟任务时间戳
type SiblingTask struct {
	TaskID      string     `json:"taskId"`
	Warehouse   string     `json:"warehouse"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
}

// TaskLine 任务内一个 SKU 行（一个 position）
type TaskLine struct {
	SKU       string `json:"sku"`
	Warehouse string `json:"warehouse"`
	Units     int    `json:"units"`
}

// TaskCompletionEvent 作业完成事件（拣货完成或复核完成时上报）
type TaskCompletionEvent struct {
	TaskID     string   `json:"taskId"`
	UserID     string   `json:"userId"`
	RoleType   RoleType `json:"roleType"`
	ShipmentID string   `json:"shipmentId"`
	Warehouse  string   `json:"warehouse"`

	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt"`

	Positions int `json:"positions"`
	Units     int `json:"units"`

	// 唱检员信息（仅复核任务可能携带）
	DictatorID   string   `json:"dictatorId"`
	DictatorRole RoleType `json:"dictatorRole"` // 唱检员的主角色，决定其积分入哪个榜

	// 该用户在同一订单内的全部任务（含本任务），用于订单级时间指标
	Siblings []SiblingTask `json:"siblings"`

	// SKU 明细，用于货位难度学习
	Lines []TaskLine `json:"lines"`
}

// TaskRecord 任务绩效记录（task + user + role 唯一）
type TaskRecord struct {
	ID         int64    `json:"id"`
	TaskID     string   `json:"taskId"`
	UserID     string   `json:"userId"`
	Role       RoleType `json:"role"`       // 记分口径角色（collector/checker/dictator）
	CreditRole RoleType `json:"creditRole"` // 积分入榜角色
	ShipmentID string   `json:"shipmentId"`
	Warehouse  string   `json:"warehouse"`

	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt"`

	Positions int `json:"positions"`
	Units     int `json:"units"`
	Switches  int `json:"switches"`

	// 时间指标，缺时间戳时为 NULL
	TaskTimeSec    *float64 `json:"taskTimeSec"`
	PickTimeSec    *float64 `json:"pickTimeSec"`
	ElapsedTimeSec *float64 `json:"elapsedTimeSec"`
	GapTimeSec     *float64 `json:"gapTimeSec"`

	// 评分结果
	ExpectedTimeSec   *float64 `json:"expectedTimeSec"`
	EfficiencyRaw     *float64 `json:"efficiencyRaw"`
	EfficiencyClamped *float64 `json:"efficiencyClamped"`
	BasePoints        float64  `json:"basePoints"`
	OrderPoints       float64  `json:"orderPoints"`

	// 评分时使用的定额快照（定额后续被编辑也可复现历史得分）
	NormA        float64 `json:"normA"`
	NormB        float64 `json:"normB"`
	NormC        float64 `json:"normC"`
	CoefficientK float64 `json:"coefficientK"`
	CoefficientM float64 `json:"coefficientM"`
	NormVersion  int     `json:"normVersion"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttributionDay 归属自然日（统一口径：优先完成时间，缺失时用确认时间）
// 返回 false 表示两个时间戳都缺失，该记录不参与日汇总
func (t *TaskRecord) AttributionDay() (time.Time, bool) {
	if t.CompletedAt != nil {
		return *t.CompletedAt, true
	}
	if t.ConfirmedAt != nil {
		return *t.ConfirmedAt, true
	}
	return time.Time{}, false
}
