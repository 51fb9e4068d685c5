// 包 store 定义策略记录的存储接口以及内存实现
package store

import (
	"context"
	"errors"

	"github.com/CamberLoid/FHEVault/internal/apperr"
	"github.com/CamberLoid/FHEVault/internal/strategy"
)

var ErrNotFound = apperr.ErrNotFound

var ErrDuplicateID = errors.New("strategy id already exists")

// UpdateFunc 修改记录；返回错误时放弃本次修改
type UpdateFunc func(rec *strategy.Record) error

type Stats struct {
	TotalStrategies   int `json:"totalStrategies"`
	TotalComputations int `json:"totalComputations"`
}

// Store 是策略记录的 CRUD 接口
// 所有方法返回的记录都是副本
type Store interface {
	Create(ctx context.Context, rec *strategy.Record) error
	Get(ctx context.Context, id string) (*strategy.Record, error)
	List(ctx context.Context) ([]*strategy.Record, error)
	// Update applies fn to one record atomically and returns the stored result.
	Update(ctx context.Context, id string, fn UpdateFunc) (*strategy.Record, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
