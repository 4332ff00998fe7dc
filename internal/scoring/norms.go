package scoring

import (
	"fmt"
	"time"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// NormStore 定额仓储接口（由 SQLite store 实现，测试可用内存假实现）
type NormStore interface {
	// ActiveNorm 指定仓库在 at 时刻生效的定额；无则返回 (nil, nil)
	ActiveNorm(warehouse string, at time.Time) (*model.Norm, error)
	// ActiveGlobalNorm 全局默认定额；无则返回 (nil, nil)
	ActiveGlobalNorm(at time.Time) (*model.Norm, error)
}

// NormService 定额查询：仓库定额 → 全局默认 → 兜底基线
type NormService struct {
	store NormStore
}

// NewNormService 创建定额查询服务
func NewNormService(store NormStore) *NormService {
	return &NormService{store: store}
}

// Lookup 查询 warehouse 在 at 时刻适用的定额快照。
// 只有存储层故障才返回错误；查不到记录时回落到兜底基线。
func (s *NormService) Lookup(warehouse string, at time.Time) (model.NormSnapshot, error) {
	if warehouse != "" {
		n, err := s.store.ActiveNorm(warehouse, at)
		if err != nil {
			return model.NormSnapshot{}, fmt.Errorf("lookup norm for warehouse %q: %w", warehouse, err)
		}
		if n != nil {
			return n.Snapshot(), nil
		}
	}

	n, err := s.store.ActiveGlobalNorm(at)
	if err != nil {
		return model.NormSnapshot{}, fmt.Errorf("lookup global norm: %w", err)
	}
	if n != nil {
		return n.Snapshot(), nil
	}

	return model.BaselineNorm(), nil
}
