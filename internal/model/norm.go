package model

import "time"

// Norm 工时定额（warehouse 为空表示全局默认）
type Norm struct {
	ID            int64     `json:"id"`
	Warehouse     *string   `json:"warehouse"`
	NormA         float64   `json:"normA"`        // 每 position 定额秒数
	NormB         float64   `json:"normB"`        // 每 unit 定额秒数
	NormC         float64   `json:"normC"`        // 每次跨库切换定额秒数
	CoefficientK  float64   `json:"coefficientK"` // unit 积分权重
	CoefficientM  float64   `json:"coefficientM"` // 切换积分权重
	Version       int       `json:"version"`
	EffectiveFrom time.Time `json:"effectiveFrom"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NormSnapshot 评分时落盘到 TaskRecord 的定额快照
type NormSnapshot struct {
	NormA        float64 `json:"normA"`
	NormB        float64 `json:"normB"`
	NormC        float64 `json:"normC"`
	CoefficientK float64 `json:"coefficientK"`
	CoefficientM float64 `json:"coefficientM"`
	Version      int     `json:"version"`
}

// Snapshot 取定额快照
func (n *Norm) Snapshot() NormSnapshot {
	return NormSnapshot{
		NormA:        n.NormA,
		NormB:        n.NormB,
		NormC:        n.NormC,
		CoefficientK: n.CoefficientK,
		CoefficientM: n.CoefficientM,
		Version:      n.Version,
	}
}

// BaselineNorm 兜底定额：库内既无仓库定额也无全局定额时使用。
// 按 position/切换计分，unit 贡献清零（公式修订后的口径）。
func BaselineNorm() NormSnapshot {
	return NormSnapshot{
		NormA:        30,
		NormB:        0,
		NormC:        120,
		CoefficientK: 0,
		CoefficientM: 3.0,
		Version:      0,
	}
}
