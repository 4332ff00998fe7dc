package model

import "time"

// PositionDifficultyRecord 货位难度在线估计（sku + warehouse 唯一）
// 累加的是任务级平均耗时，按任务数取均值即得难度估计
type PositionDifficultyRecord struct {
	ID        int64  `json:"id"`
	SKU       string `json:"sku"`
	Warehouse string `json:"warehouse"`

	TaskCount     int     `json:"taskCount"`
	SumSecPerUnit float64 `json:"sumSecPerUnit"`
	SumSecPerPos  float64 `json:"sumSecPerPos"`
	TotalUnits    int     `json:"totalUnits"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// AvgSecPerUnit 平均单件耗时（计算字段，无观测时 NULL）
func (r *PositionDifficultyRecord) AvgSecPerUnit() *float64 {
	if r.TaskCount <= 0 {
		return nil
	}
	v := r.SumSecPerUnit / float64(r.TaskCount)
	return &v
}

// AvgSecPerPos 平均单行耗时（计算字段，无观测时 NULL）
func (r *PositionDifficultyRecord) AvgSecPerPos() *float64 {
	if r.TaskCount <= 0 {
		return nil
	}
	v := r.SumSecPerPos / float64(r.TaskCount)
	return &v
}
