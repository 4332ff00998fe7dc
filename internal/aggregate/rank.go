package aggregate

import "sort"

// DecileTable 十分位分布表：9 个升序切点，对应分位 0.1…0.9
type DecileTable struct {
	Cuts []float64 `json:"cuts"`
}

// BuildDecileTable 用全员非零周期积分构建十分位表。
// 空人群返回空表（所有人名次为 0，表示未参与排名）。
func BuildDecileTable(points []float64) DecileTable {
	values := make([]float64, 0, len(points))
	for _, v := range points {
		if v != 0 {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return DecileTable{}
	}

	sort.Float64s(values)

	// 最近秩法取分位切点，与审计侧的百分位口径一致；
	// 0.9 切点严格低于最大值，保证顶桶可达
	cuts := make([]float64, 0, 9)
	n := len(values)
	for i := 1; i <= 9; i++ {
		idx := (n*i+9)/10 - 1
		cuts = append(cuts, values[idx])
	}
	return DecileTable{Cuts: cuts}
}

// Empty 是否为空表
func (t DecileTable) Empty() bool {
	return len(t.Cuts) == 0
}

// Rank 积分对应的名次（1..10）。取第一个 >= value 的切点的序号；
// 都小于 value 时为 10。相同积分落在更低的桶里。
func (t DecileTable) Rank(value float64) int {
	if t.Empty() {
		return 0
	}
	for i, cut := range t.Cuts {
		if cut >= value {
			return i + 1
		}
	}
	return 10
}
