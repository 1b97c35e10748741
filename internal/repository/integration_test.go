//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	"github.com/sourav-maji/RosterPro/internal/seed"
	"github.com/sourav-maji/RosterPro/pkg/database"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

// startPostgres 未提供 TEST_DATABASE_DSN 时启动一次性 PostgreSQL 容器
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("rosterpro_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", nil, fmt.Errorf("启动 PostgreSQL 容器失败: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	dsn, err := container.ConnectionString(ctx, "sslmode=disable", "TimeZone=UTC")
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("获取容器连接串失败: %w", err)
	}
	return dsn, terminate, nil
}

func TestMain(m *testing.M) {
	os.Exit(runIntegration(m))
}

func runIntegration(m *testing.M) int {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		var (
			terminate func()
			err       error
		)
		dsn, terminate, err = startPostgres(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		defer terminate()
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		return 1
	}

	// 使用正式迁移脚本建表，保证约束与索引和生产一致
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		return 1
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		return 1
	}

	return m.Run()
}

// fixture 每个测试使用独立租户，互不干扰
type fixture struct {
	tenantID string
	repo     *repository.Repository
	data     *repository.SeedData
}

const fixtureYAML = `
tenant_id: %s
roles:
  - {code: NURSE, name: Nurse, max_shifts_per_week: 5}
  - {code: DOCTOR, name: Doctor}
departments:
  - key: er
    name: Emergency
    shifts:
      - {key: day, name: Day, start: "08:00", end: "16:00"}
      - {key: night, name: Night, start: "20:00", end: "08:00", hours: 12, type: NIGHT}
    staff:
      - {key: alice, name: Alice, role: NURSE}
      - {key: bob, name: Bob, role: NURSE}
      - {key: carol, name: Carol, role: DOCTOR}
    requirements:
      - {shift: day, role: NURSE, count: 2, from: "2024-01-01", to: "2024-01-31"}
`

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	tenantID := fmt.Sprintf("it-%d", time.Now().UnixNano())

	fx, err := seed.Load(strings.NewReader(fmt.Sprintf(fixtureYAML, tenantID)))
	if err != nil {
		t.Fatalf("解析种子失败: %v", err)
	}
	data, err := fx.Build()
	if err != nil {
		t.Fatalf("构建种子失败: %v", err)
	}
	if _, err := repository.ApplySeed(context.Background(), testDB, data); err != nil {
		t.Fatalf("导入种子失败: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range []string{"allocation_change_logs", "allocations", "schedule_runs", "requirement_versions", "staff", "shifts", "departments", "roles"} {
			testDB.Exec("DELETE FROM "+table+" WHERE tenant_id = ?", tenantID)
		}
	})

	return &fixture{
		tenantID: tenantID,
		repo:     repository.NewProvider(testDB).ForTenant(tenantID),
		data:     data,
	}
}

func date(s string) time.Time {
	d, _ := model.ParseDate(s)
	return d
}

// ═══════════════════════════════════════════════════════════
// Seed
// ═══════════════════════════════════════════════════════════

func TestApplySeed_Idempotent(t *testing.T) {
	f := setupFixture(t)

	res, err := repository.ApplySeed(context.Background(), testDB, f.data)
	if err != nil {
		t.Fatalf("重复导入失败: %v", err)
	}
	total := res.Roles + res.Departments + res.Shifts + res.Staff + res.Requirements
	if total != 0 {
		t.Errorf("重复导入不应插入新行，实际: %+v", res)
	}
}

// ═══════════════════════════════════════════════════════════
// Tenant scope
// ═══════════════════════════════════════════════════════════

func TestDirectory_TenantIsolation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	deptID := f.data.Departments[0].DepartmentID

	if _, err := f.repo.Directory.GetDepartment(ctx, deptID); err != nil {
		t.Fatalf("本租户应可见: %v", err)
	}

	other := repository.NewProvider(testDB).ForTenant(f.tenantID + "-other")
	if _, err := other.Directory.GetDepartment(ctx, deptID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("其他租户应不可见，实际: %v", err)
	}
	shifts, err := other.Directory.ListShifts(ctx, deptID, false)
	if err != nil || len(shifts) != 0 {
		t.Errorf("其他租户不应列出班次，实际: %d, %v", len(shifts), err)
	}
}

func TestDirectory_ListShiftsOrdered(t *testing.T) {
	f := setupFixture(t)
	shifts, err := f.repo.Directory.ListShifts(context.Background(), f.data.Departments[0].DepartmentID, true)
	if err != nil {
		t.Fatalf("ListShifts 失败: %v", err)
	}
	if len(shifts) != 2 || shifts[0].Name != "Day" || shifts[1].Name != "Night" {
		t.Errorf("期望按开始时间排序 [Day Night]，实际: %+v", shifts)
	}
}

// ═══════════════════════════════════════════════════════════
// Requirement versions
// ═══════════════════════════════════════════════════════════

func TestRequirement_FindOverlapping(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	existing := f.data.Requirements[0]
	key := repository.RequirementKey{DepartmentID: existing.DepartmentID, ShiftID: existing.ShiftID, RoleCode: "NURSE"}

	tests := []struct {
		name     string
		from, to string
		want     int
	}{
		{"完全包含", "2024-01-10", "2024-01-12", 1},
		{"端点相接", "2024-01-31", "2024-02-10", 1},
		{"紧邻不重叠", "2024-02-01", "2024-02-29", 0},
		{"在前", "2023-12-01", "2023-12-31", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.repo.Transaction(ctx, func(tx *repository.Repository) error {
				if err := tx.Requirement.LockKey(ctx, key); err != nil {
					return err
				}
				got, err := tx.Requirement.FindOverlapping(ctx, key, date(tt.from), date(tt.to), "")
				if err != nil {
					return err
				}
				if len(got) != tt.want {
					t.Errorf("期望 %d 条重叠，实际: %d", tt.want, len(got))
				}
				return nil
			})
			if err != nil {
				t.Fatalf("事务失败: %v", err)
			}
		})
	}

	// 排除自身
	got, err := f.repo.Requirement.FindOverlapping(ctx, key, date("2024-01-01"), date("2024-01-31"), existing.RequirementID)
	if err != nil || len(got) != 0 {
		t.Errorf("排除自身后不应有重叠，实际: %d, %v", len(got), err)
	}
}

func TestRequirement_UpdateVersionConflict(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	current, err := f.repo.Requirement.GetByID(ctx, f.data.Requirements[0].RequirementID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}

	stale := *current
	current.RequiredCount = 3
	if err := f.repo.Requirement.Update(ctx, current); err != nil {
		t.Fatalf("首次更新失败: %v", err)
	}

	stale.RequiredCount = 4
	if err := f.repo.Requirement.Update(ctx, &stale); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望乐观锁冲突，实际: %v", err)
	}
}

func TestRequirement_DeleteRecordsOperator(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	id := f.data.Requirements[0].RequirementID

	if err := f.repo.Requirement.Delete(ctx, id, "user-9"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := f.repo.Requirement.GetByID(ctx, id); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("删除后期望查不到，实际: %v", err)
	}

	var row model.RequirementVersion
	if err := testDB.Unscoped().Where("requirement_id = ?", id).First(&row).Error; err != nil {
		t.Fatalf("读取已删除记录失败: %v", err)
	}
	if !row.DeletedAt.Valid || row.DeletedBy == nil || *row.DeletedBy != "user-9" {
		t.Errorf("期望同时写入 deleted_at 与 deleted_by，实际: %v / %v", row.DeletedAt, row.DeletedBy)
	}

	if err := f.repo.Requirement.Delete(ctx, id, "user-9"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除期望 ErrRecordNotFound，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Allocations
// ═══════════════════════════════════════════════════════════

func (f *fixture) alloc(shiftIdx, staffIdx int, day, source string) model.Allocation {
	return model.Allocation{
		DepartmentID: f.data.Departments[0].DepartmentID,
		ShiftID:      f.data.Shifts[shiftIdx].ShiftID,
		StaffID:      f.data.Staff[staffIdx].StaffID,
		Date:         date(day),
		Source:       source,
		Status:       model.AllocationAssigned,
	}
}

func TestAllocation_UniqueStaffDate(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	first := f.alloc(0, 0, "2024-01-08", model.SourceManual)
	if err := f.repo.Allocation.Create(ctx, &first); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	second := f.alloc(1, 0, "2024-01-08", model.SourceManual)
	if err := f.repo.Allocation.Create(ctx, &second); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Errorf("同一员工同日第二条记录应冲突，实际: %v", err)
	}
}

func TestAllocation_DeleteSolverRowsKeepsManual(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	rows := []model.Allocation{
		f.alloc(0, 0, "2024-01-08", model.SourceSolver),
		f.alloc(0, 1, "2024-01-08", model.SourceManual),
		f.alloc(0, 0, "2024-01-09", model.SourceSolver),
	}
	if err := f.repo.Allocation.CreateBatch(ctx, rows); err != nil {
		t.Fatalf("批量创建失败: %v", err)
	}

	deleted, err := f.repo.Allocation.DeleteSolverRows(ctx, f.data.Departments[0].DepartmentID, []time.Time{date("2024-01-08")})
	if err != nil {
		t.Fatalf("DeleteSolverRows 失败: %v", err)
	}
	if deleted != 1 {
		t.Errorf("期望删除 1 条，实际: %d", deleted)
	}

	_, total, err := f.repo.Allocation.List(ctx, repository.AllocationFilter{DepartmentID: f.data.Departments[0].DepartmentID}, 0, 10)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 2 {
		t.Errorf("期望剩余 2 条，实际: %d", total)
	}
}

func TestAllocation_CountCovered(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	rows := []model.Allocation{
		f.alloc(0, 0, "2024-01-08", model.SourceSolver),
		f.alloc(0, 1, "2024-01-08", model.SourceSolver),
		f.alloc(1, 2, "2024-01-08", model.SourceManual),
	}
	rows[1].Status = model.AllocationLeave
	if err := f.repo.Allocation.CreateBatch(ctx, rows); err != nil {
		t.Fatalf("批量创建失败: %v", err)
	}

	counts, err := f.repo.Allocation.CountCovered(ctx, f.data.Departments[0].DepartmentID, date("2024-01-08"))
	if err != nil {
		t.Fatalf("CountCovered 失败: %v", err)
	}
	got := map[string]int{}
	for _, c := range counts {
		got[c.ShiftID+"|"+c.RoleCode] = c.Actual
	}
	if got[f.data.Shifts[0].ShiftID+"|NURSE"] != 1 {
		t.Errorf("请假不计入到岗，期望 Day/NURSE=1，实际: %v", got)
	}
	if got[f.data.Shifts[1].ShiftID+"|DOCTOR"] != 1 {
		t.Errorf("期望 Night/DOCTOR=1，实际: %v", got)
	}
}

func TestAllocation_TransactionRollback(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := f.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a := f.alloc(0, 0, "2024-01-10", model.SourceSolver)
		if err := tx.Allocation.Create(ctx, &a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望返回 boom，实际: %v", err)
	}

	exists, err := f.repo.Allocation.ExistsForStaffDate(ctx, f.data.Staff[0].StaffID, date("2024-01-10"), "")
	if err != nil {
		t.Fatalf("ExistsForStaffDate 失败: %v", err)
	}
	if exists {
		t.Error("回滚后记录不应存在")
	}
}

// ═══════════════════════════════════════════════════════════
// Schedule runs
// ═══════════════════════════════════════════════════════════

func TestScheduleRun_CreateAndList(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	deptID := f.data.Departments[0].DepartmentID

	for i := 0; i < 3; i++ {
		run := &model.ScheduleRun{
			DepartmentID: deptID,
			WeekStart:    date("2024-01-08"),
			InputPayload: datatypes.JSON(fmt.Sprintf(`{"n":%d}`, i)),
			PayloadHash:  strings.Repeat("a", 64),
			Status:       "SUCCESS",
			TriggeredBy:  "it",
		}
		if err := f.repo.ScheduleRun.Create(ctx, run); err != nil {
			t.Fatalf("创建运行记录失败: %v", err)
		}
	}

	runs, err := f.repo.ScheduleRun.ListRecent(ctx, deptID, 2)
	if err != nil {
		t.Fatalf("ListRecent 失败: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("期望 2 条，实际: %d", len(runs))
	}
	if len(runs[0].InputPayload) != 0 {
		t.Error("列表不应加载报文字段")
	}

	full, err := f.repo.ScheduleRun.GetByID(ctx, runs[0].RunID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(full.InputPayload) == 0 {
		t.Error("详情应包含输入报文")
	}
}
