package audit

import (
	"fmt"
	"strings"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

var cohortNames = map[string]string{
	string(model.RoleCollector): "拣货组",
	string(model.RoleChecker):   "复核组",
	string(model.RoleDictator):  "唱检组",
	CohortOverall:               "全员",
}

// renderNarrative 把结构化报告渲染成叙述文本；只读取报告本身，
// 不再扫描数据
func renderNarrative(r *model.AuditReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "绩效公平性审计（%s ~ %s）\n",
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	fmt.Fprintf(&b, "覆盖 %d 名用户、%d 条任务记录。\n", r.UserCount, r.TaskCount)

	if r.Gini == nil {
		b.WriteString("区间内无积分数据，无法计算基尼系数。\n")
	} else {
		fmt.Fprintf(&b, "总积分基尼系数 %.3f。", *r.Gini)
		switch {
		case *r.Gini < 0.2:
			b.WriteString("积分分布较为均衡。\n")
		case *r.Gini < 0.4:
			b.WriteString("积分分布存在一定差距，属正常范围。\n")
		default:
			b.WriteString("积分分布明显不均，需检查评分公式是否偏向特定作业类型。\n")
		}
	}

	if c := r.Correlations.PointsVsPositions; c != nil {
		fmt.Fprintf(&b, "积分与行数相关性 %.2f", *c)
		if u := r.Correlations.PointsVsUnits; u != nil {
			fmt.Fprintf(&b, "，与件数相关性 %.2f", *u)
		}
		b.WriteString("。\n")
	}

	for _, c := range r.Cohorts {
		name := cohortNames[c.Cohort]
		if name == "" {
			name = c.Cohort
		}
		fmt.Fprintf(&b, "%s（%d 人 / %d 任务）：", name, c.Users, c.Tasks)
		if c.PPHP50 != nil {
			fmt.Fprintf(&b, "每小时行数中位 %.1f（P90 %.1f）", *c.PPHP50, deref(c.PPHP90))
		}
		if c.GapShareP50 != nil {
			fmt.Fprintf(&b, "，空闲占比中位 %.0f%%", *c.GapShareP50*100)
		}
		if c.PointsPerHourP50 != nil {
			fmt.Fprintf(&b, "，时均积分中位 %.1f", *c.PointsPerHourP50)
		}
		b.WriteString("。\n")
	}

	if len(r.Flags) == 0 {
		b.WriteString("未发现用户级异常。\n")
	} else {
		fmt.Fprintf(&b, "用户级告警 %d 条：\n", len(r.Flags))
		for _, f := range r.Flags {
			fmt.Fprintf(&b, "- [%s] %s：%s\n", cohortName(f.Cohort), f.UserID, f.Suggestion)
		}
	}

	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "建议：%s\n", rec)
	}

	return b.String()
}

func cohortName(cohort string) string {
	if name := cohortNames[cohort]; name != "" {
		return name
	}
	return cohort
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
