package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 单个租户作用域下所有 Repository 的聚合入口
//
// 只能通过 Provider.ForTenant 获取，租户过滤条件在构造时统一注入，
// 调用方无需（也无法）在每个查询上重复指定。
type Repository struct {
	TenantID    string
	Requirement RequirementRepository
	Allocation  AllocationRepository
	ChangeLog   ChangeLogRepository
	ScheduleRun ScheduleRunRepository
	Directory   DirectoryRepository

	// RunInTx 在事务中执行 fn，fn 收到的是绑定同一事务的 Repository
	RunInTx TxFunc
}

// TxFunc 事务执行器
type TxFunc func(ctx context.Context, fn func(tx *Repository) error) error

// Transaction 在事务中执行；未配置事务执行器时直接执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.RunInTx == nil {
		return fn(r)
	}
	return r.RunInTx(ctx, fn)
}

// Provider 按租户产出作用域 Repository
type Provider interface {
	ForTenant(tenantID string) *Repository
}

type gormProvider struct {
	db *gorm.DB
}

// NewProvider 创建基于 GORM 的 Provider
func NewProvider(db *gorm.DB) Provider {
	return &gormProvider{db: db}
}

func (p *gormProvider) ForTenant(tenantID string) *Repository {
	return newTenantRepository(p.db, tenantID)
}

func newTenantRepository(db *gorm.DB, tenantID string) *Repository {
	repo := &Repository{
		TenantID:    tenantID,
		Requirement: NewRequirementRepo(db, tenantID),
		Allocation:  NewAllocationRepo(db, tenantID),
		ChangeLog:   NewChangeLogRepo(db, tenantID),
		ScheduleRun: NewScheduleRunRepo(db, tenantID),
		Directory:   NewDirectoryRepo(db, tenantID),
	}
	repo.RunInTx = func(ctx context.Context, fn func(tx *Repository) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newTenantRepository(tx, tenantID))
		})
	}
	return repo
}

// ── 租户作用域 ──

// tenantScope 限定 table.tenant_id；显式带表名以便联表查询
func tenantScope(table, tenantID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".tenant_id = ?", tenantID)
	}
}

// scoped 所有租户数据仓储的公共基础
type scoped struct {
	db       *gorm.DB
	tenantID string
	table    string
}

func (s *scoped) q(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Scopes(tenantScope(s.table, s.tenantID))
}
