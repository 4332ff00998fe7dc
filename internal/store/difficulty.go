package store

import (
	"fmt"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// ApplyObservation 累加一次货位难度观测：任务数 +1，任务级平均
// 耗时累加到求和列，取均值时再除以任务数
func (s *Store) ApplyObservation(sku, warehouse string, secPerUnit, secPerPos float64, units int) error {
	_, err := s.db.Exec(`
		INSERT INTO position_difficulty (sku, warehouse, task_count, sum_sec_per_unit, sum_sec_per_pos, total_units)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(sku, warehouse) DO UPDATE SET
			task_count = task_count + 1,
			sum_sec_per_unit = sum_sec_per_unit + excluded.sum_sec_per_unit,
			sum_sec_per_pos = sum_sec_per_pos + excluded.sum_sec_per_pos,
			total_units = total_units + excluded.total_units,
			updated_at = CURRENT_TIMESTAMP
	`, sku, warehouse, secPerUnit, secPerPos, units)
	if err != nil {
		return fmt.Errorf("failed to apply difficulty observation %s/%s: %w", sku, warehouse, err)
	}
	return nil
}

// ListDifficulty 货位难度列表，按观测次数倒序；warehouse 为空则不过滤
func (s *Store) ListDifficulty(warehouse string, limit int) ([]*model.PositionDifficultyRecord, error) {
	query := `
		SELECT id, sku, warehouse, task_count, sum_sec_per_unit, sum_sec_per_pos, total_units, updated_at
		FROM position_difficulty`
	var args []interface{}
	if warehouse != "" {
		query += " WHERE warehouse = ?"
		args = append(args, warehouse)
	}
	query += " ORDER BY task_count DESC, sku"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query position difficulty: %w", err)
	}
	defer rows.Close()

	var out []*model.PositionDifficultyRecord
	for rows.Next() {
		r := &model.PositionDifficultyRecord{}
		var updated string
		err := rows.Scan(&r.ID, &r.SKU, &r.Warehouse, &r.TaskCount, &r.SumSecPerUnit, &r.SumSecPerPos, &r.TotalUnits, &updated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position difficulty: %w", err)
		}
		r.UpdatedAt = parseTimestamp(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}
