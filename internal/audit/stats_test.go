package audit

import (
	"math"
	"testing"
)

func TestGiniEmptyIsNil(t *testing.T) {
	t.Parallel()

	if Gini(nil) != nil {
		t.Fatalf("gini of empty population must be nil")
	}
}

func TestGiniZeroSum(t *testing.T) {
	t.Parallel()

	g := Gini([]float64{0, 0, 0})
	if g == nil || *g != 0 {
		t.Fatalf("gini of zero-sum population: %v", g)
	}
}

func TestGiniAllEqual(t *testing.T) {
	t.Parallel()

	g := Gini([]float64{7, 7, 7, 7})
	if g == nil || math.Abs(*g) > 1e-9 {
		t.Fatalf("gini of equal values: %v", g)
	}
}

func TestGiniKnownValue(t *testing.T) {
	t.Parallel()

	g := Gini([]float64{0, 0, 10, 10})
	if g == nil || math.Abs(*g-0.5) > 1e-6 {
		t.Fatalf("gini([0,0,10,10]): %v", g)
	}
}

func TestGiniBounds(t *testing.T) {
	t.Parallel()

	cases := [][]float64{
		{1},
		{0, 1},
		{1, 2, 3, 4, 5},
		{0, 0, 0, 100},
		{3.5, 0.1, 42, 7, 7, 0},
	}
	for _, vs := range cases {
		g := Gini(vs)
		if g == nil {
			t.Fatalf("gini(%v) must not be nil", vs)
		}
		if *g < 0 || *g > 1 {
			t.Fatalf("gini(%v) out of [0,1]: %v", vs, *g)
		}
	}
}

func TestGiniOrderIndependent(t *testing.T) {
	t.Parallel()

	a := Gini([]float64{5, 1, 9, 3})
	b := Gini([]float64{9, 3, 5, 1})
	if a == nil || b == nil || math.Abs(*a-*b) > 1e-12 {
		t.Fatalf("gini must not depend on input order: %v vs %v", a, b)
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	t.Parallel()

	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}
	r := Pearson(xs, ys)
	if r == nil || math.Abs(*r-1) > 1e-9 {
		t.Fatalf("perfect positive correlation: %v", r)
	}

	neg := []float64{10, 8, 6, 4, 2}
	r = Pearson(xs, neg)
	if r == nil || math.Abs(*r+1) > 1e-9 {
		t.Fatalf("perfect negative correlation: %v", r)
	}
}

func TestPearsonDegenerate(t *testing.T) {
	t.Parallel()

	if Pearson([]float64{1}, []float64{2}) != nil {
		t.Fatalf("single sample must yield nil")
	}
	if Pearson([]float64{1, 1, 1}, []float64{2, 4, 6}) != nil {
		t.Fatalf("zero variance must yield nil, not NaN")
	}
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	if Percentile(nil, 0.5) != nil {
		t.Fatalf("empty sample must yield nil")
	}

	vs := []float64{9, 1, 5, 3, 7}
	p50 := Percentile(vs, 0.5)
	if p50 == nil || *p50 != 5 {
		t.Fatalf("p50: %v", p50)
	}
	p90 := Percentile(vs, 0.9)
	if p90 == nil || *p90 != 9 {
		t.Fatalf("p90: %v", p90)
	}
}
