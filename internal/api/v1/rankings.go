package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// DailyRankings 某日的日榜（可按角色过滤）
// GET /api/rankings/daily?date=2026-03-10&role=collector
func (h *Handler) DailyRankings(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		// 默认今天（业务时区口径）
		rng, err := h.resolver.Resolve("today", nowFunc())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		date = h.resolver.DayKey(rng.From)
	}

	aggs, err := h.store.DailyByDate(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date,
		"rankings": filterByRole(aggs, c.Query("role")),
	})
}

// MonthlyRankings 某月的月榜
// GET /api/rankings/monthly?year=2026&month=3&role=checker
func (h *Handler) MonthlyRankings(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	aggs, err := h.store.MonthlyByPeriod(year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	role := c.Query("role")
	var out []*model.MonthlyAggregate
	for _, a := range aggs {
		if role == "" || string(a.Role) == role {
			out = append(out, a)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"year":     year,
		"month":    month,
		"rankings": out,
	})
}

// UserDailyHistory 某用户的日汇总历史
// GET /api/users/:id/daily?from=2026-03-01&to=2026-03-31
func (h *Handler) UserDailyHistory(c *gin.Context) {
	userID := c.Param("id")
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from 和 to 参数必填 (YYYY-MM-DD)"})
		return
	}
	if _, err := h.resolver.ResolveDates(from, to); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aggs, err := h.store.DailyByUser(userID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"daily":  aggs,
	})
}

// UserTaskHistory 某用户最近的任务记录明细
// GET /api/users/:id/tasks?limit=20
func (h *Handler) UserTaskHistory(c *gin.Context) {
	userID := c.Param("id")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, ok := parsePositiveInt(c, raw, "limit")
		if !ok {
			return
		}
		limit = v
	}

	records, err := h.store.TaskRecordsByUser(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"tasks":  records,
	})
}

func filterByRole(aggs []*model.DailyAggregate, role string) []*model.DailyAggregate {
	if role == "" {
		return aggs
	}
	var out []*model.DailyAggregate
	for _, a := range aggs {
		if string(a.Role) == role {
			out = append(out, a)
		}
	}
	return out
}

func parsePositiveInt(c *gin.Context, s, name string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " 参数无效"})
		return 0, false
	}
	return v, true
}

func parseYearMonth(c *gin.Context) (year, month int, ok bool) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year 参数无效"})
		return 0, 0, false
	}
	month, err = strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month 参数无效"})
		return 0, 0, false
	}
	return year, month, true
}
