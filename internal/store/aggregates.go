package store

import (
	"database/sql"
	"fmt"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// UpsertDaily 按 (user_id, role, date) upsert 日汇总。
// rank 列不在此处写入，名次只由 UpdateDailyRank 维护
func (s *Store) UpsertDaily(agg *model.DailyAggregate) error {
	_, err := s.db.Exec(`
		INSERT INTO daily_aggregates (
			user_id, role, date, year, month,
			positions, units, orders, tasks,
			pick_time_sec, gap_time_sec, elapsed_time_sec,
			efficiency_avg, points
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, role, date) DO UPDATE SET
			year = excluded.year,
			month = excluded.month,
			positions = excluded.positions,
			units = excluded.units,
			orders = excluded.orders,
			tasks = excluded.tasks,
			pick_time_sec = excluded.pick_time_sec,
			gap_time_sec = excluded.gap_time_sec,
			elapsed_time_sec = excluded.elapsed_time_sec,
			efficiency_avg = excluded.efficiency_avg,
			points = excluded.points,
			updated_at = CURRENT_TIMESTAMP
	`,
		agg.UserID, string(agg.Role), agg.Date, agg.Year, agg.Month,
		agg.Positions, agg.Units, agg.Orders, agg.Tasks,
		agg.PickTimeSec, agg.GapTimeSec, agg.ElapsedTimeSec,
		nilOrFloat(agg.EfficiencyAvg), agg.Points,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily aggregate %s/%s/%s: %w", agg.UserID, agg.Role, agg.Date, err)
	}
	return nil
}

// DeleteDailyExcept 删除某日不在 keep 集合中的汇总行。
// keep 的键为 "userID|role"
func (s *Store) DeleteDailyExcept(date string, keep map[string]bool) error {
	rows, err := s.db.Query("SELECT user_id, role FROM daily_aggregates WHERE date = ?", date)
	if err != nil {
		return fmt.Errorf("failed to query daily aggregates: %w", err)
	}

	type pair struct{ userID, role string }
	var stale []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.userID, &p.role); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan daily aggregate key: %w", err)
		}
		if !keep[p.userID+"|"+p.role] {
			stale = append(stale, p)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	for _, p := range stale {
		_, err := s.db.Exec("DELETE FROM daily_aggregates WHERE user_id = ? AND role = ? AND date = ?", p.userID, p.role, date)
		if err != nil {
			return fmt.Errorf("failed to delete stale daily aggregate %s/%s/%s: %w", p.userID, p.role, date, err)
		}
	}
	return nil
}

const dailyColumns = `
	id, user_id, role, date, year, month,
	positions, units, orders, tasks,
	pick_time_sec, gap_time_sec, elapsed_time_sec,
	efficiency_avg, points, rank, updated_at`

// DailyByDate 某日全部汇总
func (s *Store) DailyByDate(date string) ([]*model.DailyAggregate, error) {
	rows, err := s.db.Query(`
		SELECT `+dailyColumns+`
		FROM daily_aggregates
		WHERE date = ?
		ORDER BY role, points DESC, user_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}
	defer rows.Close()
	return scanDailies(rows)
}

// DailyByMonth 某月全部日汇总（供月上卷使用）
func (s *Store) DailyByMonth(year, month int) ([]*model.DailyAggregate, error) {
	rows, err := s.db.Query(`
		SELECT `+dailyColumns+`
		FROM daily_aggregates
		WHERE year = ? AND month = ?
		ORDER BY user_id, role, date
	`, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}
	defer rows.Close()
	return scanDailies(rows)
}

// DailyByUser 某用户在日期区间内的日汇总
func (s *Store) DailyByUser(userID, fromDate, toDate string) ([]*model.DailyAggregate, error) {
	rows, err := s.db.Query(`
		SELECT `+dailyColumns+`
		FROM daily_aggregates
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, role
	`, userID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}
	defer rows.Close()
	return scanDailies(rows)
}

// UpdateDailyRank 更新某日某人的十分位名次
func (s *Store) UpdateDailyRank(userID string, role model.RoleType, date string, rank int) error {
	_, err := s.db.Exec(`
		UPDATE daily_aggregates SET rank = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND role = ? AND date = ?
	`, rank, userID, string(role), date)
	if err != nil {
		return fmt.Errorf("failed to update daily rank: %w", err)
	}
	return nil
}

// UpsertMonthly 按 (user_id, role, year, month) upsert 月汇总。
// 同样不触碰 rank 列
func (s *Store) UpsertMonthly(agg *model.MonthlyAggregate) error {
	_, err := s.db.Exec(`
		INSERT INTO monthly_aggregates (
			user_id, role, year, month,
			positions, units, orders, tasks, days,
			pick_time_sec, gap_time_sec, elapsed_time_sec,
			efficiency_avg, points
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, role, year, month) DO UPDATE SET
			positions = excluded.positions,
			units = excluded.units,
			orders = excluded.orders,
			tasks = excluded.tasks,
			days = excluded.days,
			pick_time_sec = excluded.pick_time_sec,
			gap_time_sec = excluded.gap_time_sec,
			elapsed_time_sec = excluded.elapsed_time_sec,
			efficiency_avg = excluded.efficiency_avg,
			points = excluded.points,
			updated_at = CURRENT_TIMESTAMP
	`,
		agg.UserID, string(agg.Role), agg.Year, agg.Month,
		agg.Positions, agg.Units, agg.Orders, agg.Tasks, agg.Days,
		agg.PickTimeSec, agg.GapTimeSec, agg.ElapsedTimeSec,
		nilOrFloat(agg.EfficiencyAvg), agg.Points,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly aggregate %s/%s/%d-%02d: %w", agg.UserID, agg.Role, agg.Year, agg.Month, err)
	}
	return nil
}

// MonthlyByPeriod 某月全部月汇总
func (s *Store) MonthlyByPeriod(year, month int) ([]*model.MonthlyAggregate, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, role, year, month,
			positions, units, orders, tasks, days,
			pick_time_sec, gap_time_sec, elapsed_time_sec,
			efficiency_avg, points, rank, updated_at
		FROM monthly_aggregates
		WHERE year = ? AND month = ?
		ORDER BY role, points DESC, user_id
	`, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly aggregates: %w", err)
	}
	defer rows.Close()

	var out []*model.MonthlyAggregate
	for rows.Next() {
		a := &model.MonthlyAggregate{}
		var role string
		var eff sql.NullFloat64
		var updated string
		err := rows.Scan(
			&a.ID, &a.UserID, &role, &a.Year, &a.Month,
			&a.Positions, &a.Units, &a.Orders, &a.Tasks, &a.Days,
			&a.PickTimeSec, &a.GapTimeSec, &a.ElapsedTimeSec,
			&eff, &a.Points, &a.Rank, &updated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly aggregate: %w", err)
		}
		a.Role = model.RoleType(role)
		a.EfficiencyAvg = floatOrNil(eff)
		a.UpdatedAt = parseTimestamp(updated)
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateMonthlyRank 更新某月某人的十分位名次
func (s *Store) UpdateMonthlyRank(userID string, role model.RoleType, year, month, rank int) error {
	_, err := s.db.Exec(`
		UPDATE monthly_aggregates SET rank = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND role = ? AND year = ? AND month = ?
	`, rank, userID, string(role), year, month)
	if err != nil {
		return fmt.Errorf("failed to update monthly rank: %w", err)
	}
	return nil
}

// AvailableDates 有日汇总数据的日期列表（倒序）
func (s *Store) AvailableDates() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT date FROM daily_aggregates ORDER BY date DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query dates: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AvailableMonths 有月汇总数据的月份列表（"YYYY-MM"，倒序）
func (s *Store) AvailableMonths() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT year, month FROM monthly_aggregates
		ORDER BY year DESC, month DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query months: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var year, month int
		if err := rows.Scan(&year, &month); err != nil {
			return nil, fmt.Errorf("failed to scan month: %w", err)
		}
		out = append(out, fmt.Sprintf("%04d-%02d", year, month))
	}
	return out, rows.Err()
}

func scanDailies(rows *sql.Rows) ([]*model.DailyAggregate, error) {
	var out []*model.DailyAggregate
	for rows.Next() {
		a := &model.DailyAggregate{}
		var role string
		var eff sql.NullFloat64
		var updated string
		err := rows.Scan(
			&a.ID, &a.UserID, &role, &a.Date, &a.Year, &a.Month,
			&a.Positions, &a.Units, &a.Orders, &a.Tasks,
			&a.PickTimeSec, &a.GapTimeSec, &a.ElapsedTimeSec,
			&eff, &a.Points, &a.Rank, &updated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily aggregate: %w", err)
		}
		a.Role = model.RoleType(role)
		a.EfficiencyAvg = floatOrNil(eff)
		a.UpdatedAt = parseTimestamp(updated)
		out = append(out, a)
	}
	return out, rows.Err()
}
