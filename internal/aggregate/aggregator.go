package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

// TaskSource 任务记录读取接口
type TaskSource interface {
	// TaskRecordsInRange 归属时刻落在区间内的全部任务记录
	TaskRecordsInRange(rng period.Range) ([]*model.TaskRecord, error)
}

// AggregateStore 汇总仓储接口，全部写入按自然键 upsert
type AggregateStore interface {
	UpsertDaily(agg *model.DailyAggregate) error
	DeleteDailyExcept(date string, keep map[string]bool) error
	DailyByDate(date string) ([]*model.DailyAggregate, error)
	DailyByMonth(year, month int) ([]*model.DailyAggregate, error)
	UpdateDailyRank(userID string, role model.RoleType, date string, rank int) error

	UpsertMonthly(agg *model.MonthlyAggregate) error
	MonthlyByPeriod(year, month int) ([]*model.MonthlyAggregate, error)
	UpdateMonthlyRank(userID string, role model.RoleType, year, month, rank int) error
}

// Aggregator 日/月绩效汇总器。每次都整日重算而不是增量修补，
// 避免累计误差；对相同输入重复执行产出完全一致
type Aggregator struct {
	tasks    TaskSource
	aggs     AggregateStore
	resolver period.Resolver
}

// NewAggregator 创建汇总器
func NewAggregator(tasks TaskSource, aggs AggregateStore, resolver period.Resolver) *Aggregator {
	return &Aggregator{tasks: tasks, aggs: aggs, resolver: resolver}
}

// dailyKey (user, role) 分组键
type dailyKey struct {
	UserID string
	Role   model.RoleType
}

// BuildDaily 从一组任务记录构建某用户某日的汇总（纯函数，便于测试）。
// 记录先按 TaskID 排序，保证浮点累加顺序稳定、重算结果可复现。
func BuildDaily(userID string, role model.RoleType, date string, year, month int, records []*model.TaskRecord) *model.DailyAggregate {
	sorted := make([]*model.TaskRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TaskID < sorted[j].TaskID })

	agg := &model.DailyAggregate{
		UserID: userID,
		Role:   role,
		Date:   date,
		Year:   year,
		Month:  month,
	}

	orders := map[string]bool{}
	var effWeighted, effWeight float64

	for _, r := range sorted {
		agg.Tasks++
		agg.Positions += r.Positions
		agg.Units += r.Units
		if r.ShipmentID != "" {
			orders[r.ShipmentID] = true
		}
		if r.PickTimeSec != nil {
			agg.PickTimeSec += *r.PickTimeSec
		}
		if r.GapTimeSec != nil {
			agg.GapTimeSec += *r.GapTimeSec
		}
		if r.ElapsedTimeSec != nil {
			agg.ElapsedTimeSec += *r.ElapsedTimeSec
		}
		agg.Points += r.OrderPoints

		if r.EfficiencyClamped != nil && r.PickTimeSec != nil && *r.PickTimeSec > 0 {
			effWeighted += *r.EfficiencyClamped * *r.PickTimeSec
			effWeight += *r.PickTimeSec
		}
	}

	agg.Orders = len(orders)
	if effWeight > 0 {
		v := effWeighted / effWeight
		agg.EfficiencyAvg = &v
	}
	return agg
}

// RecomputeDay 整日重算：抓取归属该日的全部任务记录，按
// (用户, 入榜角色) 分组重建 DailyAggregate，清掉该日已不存在的
// 分组，然后全量重排该日名次
func (a *Aggregator) RecomputeDay(date string) error {
	rng, err := a.resolver.DayRange(date)
	if err != nil {
		return err
	}

	records, err := a.tasks.TaskRecordsInRange(rng)
	if err != nil {
		return fmt.Errorf("load task records for %s: %w", date, err)
	}

	year, month := a.resolver.YearMonth(rng.From)

	groups := map[dailyKey][]*model.TaskRecord{}
	for _, r := range records {
		if _, ok := r.AttributionDay(); !ok {
			continue
		}
		role := r.CreditRole
		if role == "" {
			role = r.Role
		}
		k := dailyKey{UserID: r.UserID, Role: role}
		groups[k] = append(groups[k], r)
	}

	keep := map[string]bool{}
	keys := make([]dailyKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].UserID != keys[j].UserID {
			return keys[i].UserID < keys[j].UserID
		}
		return keys[i].Role < keys[j].Role
	})

	for _, k := range keys {
		agg := BuildDaily(k.UserID, k.Role, date, year, month, groups[k])
		if err := a.aggs.UpsertDaily(agg); err != nil {
			return fmt.Errorf("upsert daily %s/%s/%s: %w", k.UserID, k.Role, date, err)
		}
		keep[k.UserID+"|"+string(k.Role)] = true
	}

	// 构成记录被撤销后留下的空壳分组一并清理，保证重算收敛
	if err := a.aggs.DeleteDailyExcept(date, keep); err != nil {
		return fmt.Errorf("prune daily %s: %w", date, err)
	}

	return a.RecomputeDailyRanks(date)
}

// RecomputeMonth 月汇总：只从该月的 DailyAggregate 上卷，
// 绝不直接回到任务记录
func (a *Aggregator) RecomputeMonth(year, month int) error {
	dailies, err := a.aggs.DailyByMonth(year, month)
	if err != nil {
		return fmt.Errorf("load dailies for %d-%02d: %w", year, month, err)
	}

	sort.Slice(dailies, func(i, j int) bool {
		if dailies[i].UserID != dailies[j].UserID {
			return dailies[i].UserID < dailies[j].UserID
		}
		if dailies[i].Role != dailies[j].Role {
			return dailies[i].Role < dailies[j].Role
		}
		return dailies[i].Date < dailies[j].Date
	})

	type acc struct {
		agg         *model.MonthlyAggregate
		effWeighted float64
		effWeight   float64
	}
	groups := map[dailyKey]*acc{}
	order := []dailyKey{}

	for _, d := range dailies {
		k := dailyKey{UserID: d.UserID, Role: d.Role}
		g, ok := groups[k]
		if !ok {
			g = &acc{agg: &model.MonthlyAggregate{UserID: d.UserID, Role: d.Role, Year: year, Month: month}}
			groups[k] = g
			order = append(order, k)
		}
		g.agg.Positions += d.Positions
		g.agg.Units += d.Units
		g.agg.Orders += d.Orders
		g.agg.Tasks += d.Tasks
		g.agg.Days++
		g.agg.PickTimeSec += d.PickTimeSec
		g.agg.GapTimeSec += d.GapTimeSec
		g.agg.ElapsedTimeSec += d.ElapsedTimeSec
		g.agg.Points += d.Points
		if d.EfficiencyAvg != nil && d.PickTimeSec > 0 {
			g.effWeighted += *d.EfficiencyAvg * d.PickTimeSec
			g.effWeight += d.PickTimeSec
		}
	}

	for _, k := range order {
		g := groups[k]
		if g.effWeight > 0 {
			v := g.effWeighted / g.effWeight
			g.agg.EfficiencyAvg = &v
		}
		if err := a.aggs.UpsertMonthly(g.agg); err != nil {
			return fmt.Errorf("upsert monthly %s/%s/%d-%02d: %w", k.UserID, k.Role, year, month, err)
		}
	}

	return a.RecomputeMonthlyRanks(year, month)
}

// RecomputeDailyRanks 全量重排某日名次（按入榜角色分榜），
// 不做局部修补
func (a *Aggregator) RecomputeDailyRanks(date string) error {
	aggs, err := a.aggs.DailyByDate(date)
	if err != nil {
		return fmt.Errorf("load dailies for %s: %w", date, err)
	}

	byRole := map[model.RoleType][]*model.DailyAggregate{}
	for _, agg := range aggs {
		byRole[agg.Role] = append(byRole[agg.Role], agg)
	}

	for role, group := range byRole {
		points := make([]float64, 0, len(group))
		for _, agg := range group {
			points = append(points, agg.Points)
		}
		table := BuildDecileTable(points)
		for _, agg := range group {
			rank := 0
			if agg.Points != 0 {
				rank = table.Rank(agg.Points)
			}
			if rank == agg.Rank {
				continue
			}
			if err := a.aggs.UpdateDailyRank(agg.UserID, role, date, rank); err != nil {
				return fmt.Errorf("update daily rank %s/%s/%s: %w", agg.UserID, role, date, err)
			}
		}
	}
	return nil
}

// RecomputeMonthlyRanks 全量重排某月名次
func (a *Aggregator) RecomputeMonthlyRanks(year, month int) error {
	aggs, err := a.aggs.MonthlyByPeriod(year, month)
	if err != nil {
		return fmt.Errorf("load monthlies for %d-%02d: %w", year, month, err)
	}

	byRole := map[model.RoleType][]*model.MonthlyAggregate{}
	for _, agg := range aggs {
		byRole[agg.Role] = append(byRole[agg.Role], agg)
	}

	for role, group := range byRole {
		points := make([]float64, 0, len(group))
		for _, agg := range group {
			points = append(points, agg.Points)
		}
		table := BuildDecileTable(points)
		for _, agg := range group {
			rank := 0
			if agg.Points != 0 {
				rank = table.Rank(agg.Points)
			}
			if rank == agg.Rank {
				continue
			}
			if err := a.aggs.UpdateMonthlyRank(agg.UserID, role, year, month, rank); err != nil {
				return fmt.Errorf("update monthly rank %s/%s/%d-%02d: %w", agg.UserID, role, year, month, err)
			}
		}
	}
	return nil
}

// RecomputeDaysTouching 重算时刻 t 归属日及其所在月
func (a *Aggregator) RecomputeDaysTouching(t time.Time) error {
	date := a.resolver.DayKey(t)
	if err := a.RecomputeDay(date); err != nil {
		return err
	}
	year, month := a.resolver.YearMonth(t)
	return a.RecomputeMonth(year, month)
}
