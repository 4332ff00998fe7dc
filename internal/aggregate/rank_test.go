package aggregate

import "testing"

func TestDecileTableEmpty(t *testing.T) {
	t.Parallel()

	tab := BuildDecileTable(nil)
	if !tab.Empty() {
		t.Fatalf("empty population must build empty table")
	}
	if got := tab.Rank(5); got != 0 {
		t.Fatalf("empty table rank: %d", got)
	}

	// 全零积分不参与排名
	tab = BuildDecileTable([]float64{0, 0, 0})
	if !tab.Empty() {
		t.Fatalf("all-zero population must build empty table")
	}
}

func TestDecileTableHasNineCuts(t *testing.T) {
	t.Parallel()

	points := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		points = append(points, float64(i))
	}
	tab := BuildDecileTable(points)
	if len(tab.Cuts) != 9 {
		t.Fatalf("cut count: %d", len(tab.Cuts))
	}
	for i := 1; i < len(tab.Cuts); i++ {
		if tab.Cuts[i] < tab.Cuts[i-1] {
			t.Fatalf("cuts not ascending: %v", tab.Cuts)
		}
	}
}

func TestDecileCutsNearestRank(t *testing.T) {
	t.Parallel()

	points := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	tab := BuildDecileTable(points)

	want := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90}
	if len(tab.Cuts) != len(want) {
		t.Fatalf("cuts = %v, want %v", tab.Cuts, want)
	}
	for i := range want {
		if tab.Cuts[i] != want[i] {
			t.Fatalf("cuts = %v, want %v", tab.Cuts, want)
		}
	}

	// 最大值必须高于全部切点，落入第 10 桶
	if got := tab.Rank(100); got != 10 {
		t.Fatalf("rank of max: %d, want 10", got)
	}
}

func TestRankOrdering(t *testing.T) {
	t.Parallel()

	points := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	tab := BuildDecileTable(points)

	if tab.Rank(10) > tab.Rank(100) {
		t.Fatalf("rank(min) must not exceed rank(max)")
	}
	if got := tab.Rank(10); got != 1 {
		t.Fatalf("rank of min: %d", got)
	}
	if got := tab.Rank(100); got != 10 {
		t.Fatalf("rank of max: %d", got)
	}
	if got := tab.Rank(500); got != 10 {
		t.Fatalf("rank above all cuts: %d", got)
	}
}

func TestRankTiesFallIntoLowerBucket(t *testing.T) {
	t.Parallel()

	points := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	tab := BuildDecileTable(points)

	// 恰好落在切点上的值与严格低于它的值同桶
	cut := tab.Cuts[3]
	onCut := tab.Rank(cut)
	below := tab.Rank(cut - 0.001)
	if onCut != below {
		t.Fatalf("value on cut must share the lower bucket: on=%d below=%d", onCut, below)
	}
}

func TestRankEqualValuesShareRank(t *testing.T) {
	t.Parallel()

	tab := BuildDecileTable([]float64{5, 5, 5, 5, 5})
	if tab.Rank(5) != 1 {
		t.Fatalf("all-equal population: rank=%d", tab.Rank(5))
	}
}
