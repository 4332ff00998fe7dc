package scoring

import (
	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// Config 评分参数
type Config struct {
	EfficiencyMin float64 // 效率下限
	EfficiencyMax float64 // 效率上限
	DictatorShare float64 // 唱检员积分比例
}

// DefaultConfig 默认评分参数
func DefaultConfig() Config {
	return Config{
		EfficiencyMin: 0.5,
		EfficiencyMax: 1.5,
		DictatorShare: 0.75,
	}
}

// Input 一次任务的评分输入
type Input struct {
	Positions   int
	Units       int
	Switches    int
	PickTimeSec *float64 // 订单级有效作业时长，可为 NULL
	Norm        model.NormSnapshot
}

// Result 评分结果
type Result struct {
	ExpectedTimeSec   float64 `json:"expectedTimeSec"`
	EfficiencyRaw     float64 `json:"efficiencyRaw"`
	EfficiencyClamped float64 `json:"efficiencyClamped"`
	BasePoints        float64 `json:"basePoints"`
	OrderPoints       float64 `json:"orderPoints"`
}

// Clamp 截断到 [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Switches 跨库切换次数：触达仓库数 - 1，不为负
func Switches(distinctWarehouses int) int {
	if distinctWarehouses <= 1 {
		return 0
	}
	return distinctWarehouses - 1
}

// Score 按定额计算期望时长、效率与积分。
// pickTime 缺失或 <=0 时效率按 1 处理，不算错误。
func Score(in Input, cfg Config) Result {
	n := in.Norm

	expected := n.NormA*float64(in.Positions) + n.NormB*float64(in.Units) + n.NormC*float64(in.Switches)

	efficiency := 1.0
	if in.PickTimeSec != nil && *in.PickTimeSec > 0 {
		efficiency = expected / *in.PickTimeSec
	}
	clamped := Clamp(efficiency, cfg.EfficiencyMin, cfg.EfficiencyMax)

	base := float64(in.Positions) + n.CoefficientK*float64(in.Units) + n.CoefficientM*float64(in.Switches)

	return Result{
		ExpectedTimeSec:   expected,
		EfficiencyRaw:     efficiency,
		EfficiencyClamped: clamped,
		BasePoints:        base,
		OrderPoints:       base * clamped,
	}
}

// DictatorPoints 唱检员按固定比例分享复核员的 orderPoints，
// 积分计入唱检员自己主角色的榜单（有意的业务规则）
func DictatorPoints(orderPoints float64, cfg Config) float64 {
	return orderPoints * cfg.DictatorShare
}
