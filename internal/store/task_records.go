package store

import (
	"database/sql"
	"fmt"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

const taskRecordColumns = `
	id, task_id, user_id, role, credit_role, shipment_id, warehouse,
	started_at, completed_at, confirmed_at,
	positions, units, switches,
	task_time_sec, pick_time_sec, elapsed_time_sec, gap_time_sec,
	expected_time_sec, efficiency_raw, efficiency_clamped, base_points, order_points,
	norm_a, norm_b, norm_c, coefficient_k, coefficient_m, norm_version`

// UpsertTaskRecord 以 (task_id, user_id, role) 为自然键 upsert 任务记录；
// 重复上报同一事件会收敛到同一行
func (s *Store) UpsertTaskRecord(r *model.TaskRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO task_records (
			task_id, user_id, role, credit_role, shipment_id, warehouse,
			started_at, completed_at, confirmed_at,
			positions, units, switches,
			task_time_sec, pick_time_sec, elapsed_time_sec, gap_time_sec,
			expected_time_sec, efficiency_raw, efficiency_clamped, base_points, order_points,
			norm_a, norm_b, norm_c, coefficient_k, coefficient_m, norm_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, user_id, role) DO UPDATE SET
			credit_role = excluded.credit_role,
			shipment_id = excluded.shipment_id,
			warehouse = excluded.warehouse,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			confirmed_at = excluded.confirmed_at,
			positions = excluded.positions,
			units = excluded.units,
			switches = excluded.switches,
			task_time_sec = excluded.task_time_sec,
			pick_time_sec = excluded.pick_time_sec,
			elapsed_time_sec = excluded.elapsed_time_sec,
			gap_time_sec = excluded.gap_time_sec,
			expected_time_sec = excluded.expected_time_sec,
			efficiency_raw = excluded.efficiency_raw,
			efficiency_clamped = excluded.efficiency_clamped,
			base_points = excluded.base_points,
			order_points = excluded.order_points,
			norm_a = excluded.norm_a,
			norm_b = excluded.norm_b,
			norm_c = excluded.norm_c,
			coefficient_k = excluded.coefficient_k,
			coefficient_m = excluded.coefficient_m,
			norm_version = excluded.norm_version,
			updated_at = CURRENT_TIMESTAMP
	`,
		r.TaskID, r.UserID, string(r.Role), string(r.CreditRole), r.ShipmentID, r.Warehouse,
		unixOrNil(r.StartedAt), unixOrNil(r.CompletedAt), unixOrNil(r.ConfirmedAt),
		r.Positions, r.Units, r.Switches,
		nilOrFloat(r.TaskTimeSec), nilOrFloat(r.PickTimeSec), nilOrFloat(r.ElapsedTimeSec), nilOrFloat(r.GapTimeSec),
		nilOrFloat(r.ExpectedTimeSec), nilOrFloat(r.EfficiencyRaw), nilOrFloat(r.EfficiencyClamped), r.BasePoints, r.OrderPoints,
		r.NormA, r.NormB, r.NormC, r.CoefficientK, r.CoefficientM, r.NormVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task record %s/%s/%s: %w", r.TaskID, r.UserID, r.Role, err)
	}
	return nil
}

// TaskRecordsInRange 归属时刻落在区间内的任务记录。
// 归属口径：有完成时间看完成时间，否则看确认时间（与日汇总一致）
func (s *Store) TaskRecordsInRange(rng period.Range) ([]*model.TaskRecord, error) {
	from := rng.From.Unix()
	to := rng.To.Unix()

	rows, err := s.db.Query(`
		SELECT `+taskRecordColumns+`
		FROM task_records
		WHERE (completed_at IS NOT NULL AND completed_at >= ? AND completed_at < ?)
		   OR (completed_at IS NULL AND confirmed_at IS NOT NULL AND confirmed_at >= ? AND confirmed_at < ?)
		ORDER BY task_id, user_id, role
	`, from, to, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query task records: %w", err)
	}
	defer rows.Close()

	return scanTaskRecords(rows)
}

// TaskRecordsByUser 某用户的任务记录（按归属时刻倒序）
func (s *Store) TaskRecordsByUser(userID string, limit int) ([]*model.TaskRecord, error) {
	query := `SELECT ` + taskRecordColumns + `
		FROM task_records
		WHERE user_id = ?
		ORDER BY COALESCE(completed_at, confirmed_at) DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task records: %w", err)
	}
	defer rows.Close()

	return scanTaskRecords(rows)
}

// CountTaskRecords 任务记录总数
func (s *Store) CountTaskRecords() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM task_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count task records: %w", err)
	}
	return count, nil
}

func scanTaskRecords(rows *sql.Rows) ([]*model.TaskRecord, error) {
	var out []*model.TaskRecord
	for rows.Next() {
		r := &model.TaskRecord{}
		var role, creditRole string
		var startedAt, completedAt, confirmedAt sql.NullInt64
		var taskTime, pickTime, elapsedTime, gapTime sql.NullFloat64
		var expected, effRaw, effClamped sql.NullFloat64

		err := rows.Scan(
			&r.ID, &r.TaskID, &r.UserID, &role, &creditRole, &r.ShipmentID, &r.Warehouse,
			&startedAt, &completedAt, &confirmedAt,
			&r.Positions, &r.Units, &r.Switches,
			&taskTime, &pickTime, &elapsedTime, &gapTime,
			&expected, &effRaw, &effClamped, &r.BasePoints, &r.OrderPoints,
			&r.NormA, &r.NormB, &r.NormC, &r.CoefficientK, &r.CoefficientM, &r.NormVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}

		r.Role = model.RoleType(role)
		r.CreditRole = model.RoleType(creditRole)
		r.StartedAt = timeOrNil(startedAt)
		r.CompletedAt = timeOrNil(completedAt)
		r.ConfirmedAt = timeOrNil(confirmedAt)
		r.TaskTimeSec = floatOrNil(taskTime)
		r.PickTimeSec = floatOrNil(pickTime)
		r.ElapsedTimeSec = floatOrNil(elapsedTime)
		r.GapTimeSec = floatOrNil(gapTime)
		r.ExpectedTimeSec = floatOrNil(expected)
		r.EfficiencyRaw = floatOrNil(effRaw)
		r.EfficiencyClamped = floatOrNil(effClamped)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
