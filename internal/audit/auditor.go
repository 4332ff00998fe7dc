package audit

import (
	"fmt"
	"sort"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

// CohortOverall 全员组
const CohortOverall = "overall"

// TaskSource 任务记录读取接口
type TaskSource interface {
	TaskRecordsInRange(rng period.Range) ([]*model.TaskRecord, error)
}

// Config 审计规则阈值
type Config struct {
	GapShareFactor      float64 // 空闲占比超过同组中位数的倍数即告警
	MultiWarehouseShare float64 // 跨库任务占比告警线
	ClampShareLimit     float64 // 截断饱和占比告警线
	ClampLowBound       float64 // 截断饱和判定下边界
	ClampHighBound      float64 // 截断饱和判定上边界
	LowUnitsCorrelation float64 // 积分-件数相关性过低判定线
	HighGini            float64 // 积分分布不均判定线
}

// DefaultConfig 默认审计阈值
func DefaultConfig() Config {
	return Config{
		GapShareFactor:      1.3,
		MultiWarehouseShare: 0.20,
		ClampShareLimit:     0.30,
		ClampLowBound:       0.90001,
		ClampHighBound:      1.09999,
		LowUnitsCorrelation: 0.3,
		HighGini:            0.4,
	}
}

// Auditor 公平性审计器：一次数据扫描产出同组基线、全局信号与
// 规则告警，并渲染结构化与叙述性两种形式
type Auditor struct {
	tasks TaskSource
	cfg   Config
}

// NewAuditor 创建审计器
func NewAuditor(tasks TaskSource, cfg Config) *Auditor {
	return &Auditor{tasks: tasks, cfg: cfg}
}

// userCohortStat 某用户在某组内的累计量
type userCohortStat struct {
	userID string
	cohort string

	tasks     int
	positions int
	units     int
	pickTime  float64
	gapTime   float64
	elapsed   float64
	points    float64

	multiWarehouse int
	clampSamples   int
	clampSaturated int
}

func (s *userCohortStat) pph() *float64 {
	if s.pickTime <= 0 {
		return nil
	}
	v := float64(s.positions) * 3600 / s.pickTime
	return &v
}

func (s *userCohortStat) gapShare() *float64 {
	if s.elapsed <= 0 {
		return nil
	}
	v := s.gapTime / s.elapsed
	return &v
}

func (s *userCohortStat) pointsPerHour() *float64 {
	if s.pickTime <= 0 {
		return nil
	}
	v := s.points * 3600 / s.pickTime
	return &v
}

// Run 在区间上执行审计
func (a *Auditor) Run(rng period.Range, now time.Time) (*model.AuditReport, error) {
	records, err := a.tasks.TaskRecordsInRange(rng)
	if err != nil {
		return nil, fmt.Errorf("load task records for audit: %w", err)
	}

	// 同一份记录只扫一遍，按 (用户, 组) 和用户两个维度累计
	byUserCohort := map[string]*userCohortStat{}
	type userTotal struct {
		points    float64
		positions int
		units     int
	}
	byUser := map[string]*userTotal{}

	for _, r := range records {
		cohort := string(r.Role)
		key := r.UserID + "|" + cohort
		s, ok := byUserCohort[key]
		if !ok {
			s = &userCohortStat{userID: r.UserID, cohort: cohort}
			byUserCohort[key] = s
		}
		accumulate(s, r, a.cfg)

		u, ok := byUser[r.UserID]
		if !ok {
			u = &userTotal{}
			byUser[r.UserID] = u
		}
		u.points += r.OrderPoints
		u.positions += r.Positions
		u.units += r.Units
	}

	report := &model.AuditReport{
		From:        rng.From,
		To:          rng.To,
		GeneratedAt: now,
		UserCount:   len(byUser),
		TaskCount:   len(records),
	}

	// 全局信号
	userIDs := make([]string, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	points := make([]float64, 0, len(userIDs))
	positions := make([]float64, 0, len(userIDs))
	units := make([]float64, 0, len(userIDs))
	for _, id := range userIDs {
		u := byUser[id]
		points = append(points, u.points)
		positions = append(positions, float64(u.positions))
		units = append(units, float64(u.units))
	}
	report.Gini = Gini(points)
	report.Correlations = model.CorrelationSignals{
		PointsVsPositions: Pearson(points, positions),
		PointsVsUnits:     Pearson(points, units),
	}

	// 同组基线
	cohortMembers := map[string][]*userCohortStat{}
	for _, s := range byUserCohort {
		cohortMembers[s.cohort] = append(cohortMembers[s.cohort], s)
		cohortMembers[CohortOverall] = append(cohortMembers[CohortOverall], s)
	}

	cohortOrder := []string{string(model.RoleCollector), string(model.RoleChecker), string(model.RoleDictator), CohortOverall}
	gapP50ByCohort := map[string]*float64{}
	for _, cohort := range cohortOrder {
		members := cohortMembers[cohort]
		if len(members) == 0 {
			continue
		}
		stats := buildCohortStats(cohort, members)
		gapP50ByCohort[cohort] = stats.GapShareP50
		report.Cohorts = append(report.Cohorts, stats)
	}

	// 用户级规则告警
	keys := make([]string, 0, len(byUserCohort))
	for k := range byUserCohort {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		report.Flags = append(report.Flags, a.userFlags(byUserCohort[k], gapP50ByCohort)...)
	}

	report.Recommendations = a.recommendations(report)
	report.Narrative = renderNarrative(report)
	return report, nil
}

func accumulate(s *userCohortStat, r *model.TaskRecord, cfg Config) {
	s.tasks++
	s.positions += r.Positions
	s.units += r.Units
	s.points += r.OrderPoints
	if r.PickTimeSec != nil {
		s.pickTime += *r.PickTimeSec
	}
	if r.GapTimeSec != nil {
		s.gapTime += *r.GapTimeSec
	}
	if r.ElapsedTimeSec != nil {
		s.elapsed += *r.ElapsedTimeSec
	}
	if r.Switches > 0 {
		s.multiWarehouse++
	}
	if r.EfficiencyClamped != nil {
		s.clampSamples++
		if *r.EfficiencyClamped <= cfg.ClampLowBound || *r.EfficiencyClamped >= cfg.ClampHighBound {
			s.clampSaturated++
		}
	}
}

func buildCohortStats(cohort string, members []*userCohortStat) model.CohortStats {
	stats := model.CohortStats{Cohort: cohort, Users: len(members)}

	var pph, gap, pts []float64
	for _, m := range members {
		stats.Tasks += m.tasks
		if v := m.pph(); v != nil {
			pph = append(pph, *v)
		}
		if v := m.gapShare(); v != nil {
			gap = append(gap, *v)
		}
		if v := m.pointsPerHour(); v != nil {
			pts = append(pts, *v)
		}
	}

	stats.PPHP50 = Percentile(pph, 0.5)
	stats.PPHP90 = Percentile(pph, 0.9)
	stats.GapShareP50 = Percentile(gap, 0.5)
	stats.GapShareP90 = Percentile(gap, 0.9)
	stats.PointsPerHourP50 = Percentile(pts, 0.5)
	stats.PointsPerHourP90 = Percentile(pts, 0.9)
	return stats
}

// userFlags 用户级规则判定；每条告警都落到一个具体的系数/定额调整建议
func (a *Auditor) userFlags(s *userCohortStat, gapP50ByCohort map[string]*float64) []model.UserFlag {
	var flags []model.UserFlag

	if gs := s.gapShare(); gs != nil {
		if p50 := gapP50ByCohort[s.cohort]; p50 != nil && *p50 > 0 {
			threshold := a.cfg.GapShareFactor * *p50
			if *gs > threshold {
				flags = append(flags, model.UserFlag{
					UserID:    s.userID,
					Cohort:    s.cohort,
					Kind:      model.FlagGapShareHigh,
					Value:     *gs,
					Threshold: threshold,
					Suggestion: fmt.Sprintf(
						"空闲占比 %.0f%% 超过同组中位数的 %.1f 倍：排查任务下发节奏，必要时上调切换定额 normC",
						*gs*100, a.cfg.GapShareFactor),
				})
			}
		}
	}

	if s.tasks > 0 {
		share := float64(s.multiWarehouse) / float64(s.tasks)
		if share > a.cfg.MultiWarehouseShare {
			flags = append(flags, model.UserFlag{
				UserID:    s.userID,
				Cohort:    s.cohort,
				Kind:      model.FlagMultiWarehouse,
				Value:     share,
				Threshold: a.cfg.MultiWarehouseShare,
				Suggestion: fmt.Sprintf(
					"跨库任务占比 %.0f%%：该用户承担了过多跨库订单，考虑上调切换权重 coefficientM 补偿",
					share*100),
			})
		}
	}

	if s.clampSamples > 0 {
		share := float64(s.clampSaturated) / float64(s.clampSamples)
		if share > a.cfg.ClampShareLimit {
			flags = append(flags, model.UserFlag{
				UserID:    s.userID,
				Cohort:    s.cohort,
				Kind:      model.FlagClampSaturated,
				Value:     share,
				Threshold: a.cfg.ClampShareLimit,
				Suggestion: fmt.Sprintf(
					"效率值 %.0f%% 顶在截断边界：定额 normA 与实际耗时脱节，建议按该组实测耗时重新标定",
					share*100),
			})
		}
	}

	return flags
}

// recommendations 全局建议
func (a *Auditor) recommendations(report *model.AuditReport) []string {
	var recs []string

	if c := report.Correlations.PointsVsUnits; c != nil && *c < a.cfg.LowUnitsCorrelation {
		recs = append(recs, fmt.Sprintf(
			"积分与件数相关性仅 %.2f：件数对积分几乎无贡献，unit 权重 coefficientK 设置过低，建议上调", *c))
	}
	if g := report.Gini; g != nil && *g > a.cfg.HighGini {
		recs = append(recs, fmt.Sprintf(
			"积分基尼系数 %.2f 偏高：积分分布明显不均，优先核对高分用户所在仓库的定额版本", *g))
	}
	if len(report.Flags) > 0 {
		recs = append(recs, fmt.Sprintf("存在 %d 条用户级告警，见明细表", len(report.Flags)))
	}
	return recs
}
