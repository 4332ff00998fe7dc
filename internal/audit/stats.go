package audit

import (
	"math"
	"sort"
)

// Gini 基尼系数：对非负值 x1..xn 升序排列后
// G = 2·Σ(i·xi)/(n·Σxi) − (n+1)/n。
// 空人群返回 nil；总和为 0 返回 0。
func Gini(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}

	g := 0.0
	if sum > 0 {
		n := float64(len(sorted))
		g = 2*weighted/(n*sum) - (n+1)/n
	}
	return &g
}

// Pearson 皮尔逊相关系数；样本不足或方差为零时返回 nil
func Pearson(xs, ys []float64) *float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return nil
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return nil
	}

	r := cov / math.Sqrt(varX*varY)
	return &r
}

// Percentile 分位数（最近秩法）；空样本返回 nil
func Percentile(values []float64, q float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := sorted[idx]
	return &v
}
