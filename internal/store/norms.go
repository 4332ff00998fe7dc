package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// SeedGlobalNorm 播种全局默认定额：仅当库内尚无全局定额时插入
// 兜底基线的物化版本（version=1），供后续在管理界面上编辑
func (s *Store) SeedGlobalNorm() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM norms WHERE warehouse IS NULL").Scan(&count); err != nil {
		return fmt.Errorf("failed to count global norms: %w", err)
	}
	if count > 0 {
		return nil
	}

	base := model.BaselineNorm()
	_, err := s.db.Exec(`
		INSERT INTO norms (warehouse, norm_a, norm_b, norm_c, coefficient_k, coefficient_m, version, effective_from, active)
		VALUES (NULL, ?, ?, ?, ?, ?, 1, ?, 1)
	`, base.NormA, base.NormB, base.NormC, base.CoefficientK, base.CoefficientM, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert seed norm: %w", err)
	}
	return nil
}

// UpsertNorm 发布新定额：同一仓库（或全局）作用域内先停用旧的
// 生效定额，再以递增版本号插入新行，保证同一时刻至多一条生效
func (s *Store) UpsertNorm(n *model.Norm) (*model.Norm, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var scopeCond string
	var scopeArgs []interface{}
	if n.Warehouse == nil {
		scopeCond = "warehouse IS NULL"
	} else {
		scopeCond = "warehouse = ?"
		scopeArgs = append(scopeArgs, *n.Warehouse)
	}

	var maxVersion sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(version) FROM norms WHERE "+scopeCond, scopeArgs...).Scan(&maxVersion); err != nil {
		return nil, fmt.Errorf("failed to read norm version: %w", err)
	}

	if _, err := tx.Exec("UPDATE norms SET active = 0 WHERE active = 1 AND "+scopeCond, scopeArgs...); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous norm: %w", err)
	}

	effective := n.EffectiveFrom
	if effective.IsZero() {
		effective = time.Now()
	}
	version := int(maxVersion.Int64) + 1

	var warehouse interface{}
	if n.Warehouse != nil {
		warehouse = *n.Warehouse
	}

	res, err := tx.Exec(`
		INSERT INTO norms (warehouse, norm_a, norm_b, norm_c, coefficient_k, coefficient_m, version, effective_from, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, warehouse, n.NormA, n.NormB, n.NormC, n.CoefficientK, n.CoefficientM, version, effective.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert norm: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get norm id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	out := *n
	out.ID = id
	out.Version = version
	out.EffectiveFrom = effective
	out.Active = true
	return &out, nil
}

// ActiveNorm 指定仓库在 at 时刻生效的定额；无则返回 (nil, nil)
func (s *Store) ActiveNorm(warehouse string, at time.Time) (*model.Norm, error) {
	row := s.db.QueryRow(`
		SELECT id, warehouse, norm_a, norm_b, norm_c, coefficient_k, coefficient_m, version, effective_from, active
		FROM norms
		WHERE warehouse = ? AND active = 1 AND effective_from <= ?
		ORDER BY effective_from DESC, version DESC
		LIMIT 1
	`, warehouse, at.Unix())
	return scanNorm(row)
}

// ActiveGlobalNorm 全局默认定额；无则返回 (nil, nil)
func (s *Store) ActiveGlobalNorm(at time.Time) (*model.Norm, error) {
	row := s.db.QueryRow(`
		SELECT id, warehouse, norm_a, norm_b, norm_c, coefficient_k, coefficient_m, version, effective_from, active
		FROM norms
		WHERE warehouse IS NULL AND active = 1 AND effective_from <= ?
		ORDER BY effective_from DESC, version DESC
		LIMIT 1
	`, at.Unix())
	return scanNorm(row)
}

// ListNorms 全部定额（含历史版本），按作用域与版本排列
func (s *Store) ListNorms() ([]*model.Norm, error) {
	rows, err := s.db.Query(`
		SELECT id, warehouse, norm_a, norm_b, norm_c, coefficient_k, coefficient_m, version, effective_from, active
		FROM norms
		ORDER BY warehouse IS NOT NULL, warehouse, version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query norms: %w", err)
	}
	defer rows.Close()

	var out []*model.Norm
	for rows.Next() {
		n, err := scanNormRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNorm(row *sql.Row) (*model.Norm, error) {
	n := &model.Norm{}
	var warehouse sql.NullString
	var effective int64
	err := row.Scan(&n.ID, &warehouse, &n.NormA, &n.NormB, &n.NormC, &n.CoefficientK, &n.CoefficientM, &n.Version, &effective, &n.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan norm: %w", err)
	}
	if warehouse.Valid {
		n.Warehouse = &warehouse.String
	}
	n.EffectiveFrom = time.Unix(effective, 0).UTC()
	return n, nil
}

func scanNormRow(rows *sql.Rows) (*model.Norm, error) {
	n := &model.Norm{}
	var warehouse sql.NullString
	var effective int64
	err := rows.Scan(&n.ID, &warehouse, &n.NormA, &n.NormB, &n.NormC, &n.CoefficientK, &n.CoefficientM, &n.Version, &effective, &n.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to scan norm: %w", err)
	}
	if warehouse.Valid {
		n.Warehouse = &warehouse.String
	}
	n.EffectiveFrom = time.Unix(effective, 0).UTC()
	return n, nil
}
