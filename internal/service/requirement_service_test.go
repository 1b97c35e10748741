package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sourav-maji/RosterPro/internal/dto"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// ── 测试辅助 ──

func setupTestRequirementService() (RequirementService, *mockStore) {
	store := newTestStore()
	svc := NewRequirementService(&mockProvider{store: store}, testLogger())
	return svc, store
}

func nurseDayRequest(from, to string) *dto.CreateRequirementRequest {
	return &dto.CreateRequirementRequest{
		DepartmentID:  deptER,
		ShiftID:       shiftDay,
		RoleCode:      "NURSE",
		RequiredCount: 2,
		EffectiveFrom: from,
		EffectiveTo:   to,
	}
}

// ── Create 测试 ──

func TestRequirementService_Create_Success(t *testing.T) {
	svc, store := setupTestRequirementService()

	resp, err := svc.Create(context.Background(), testTenant, testCaller, nurseDayRequest("2024-01-01", "2024-01-07"))
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.ID == "" || resp.Version != 1 || !resp.IsActive {
		t.Errorf("期望生成 ID、version=1、is_active=true，实际: %+v", resp)
	}
	if resp.ShiftName != "Day" {
		t.Errorf("期望 shift_name=Day，实际: %s", resp.ShiftName)
	}
	if stored := store.requirements[resp.ID]; stored.TenantID != testTenant {
		t.Errorf("期望写入 tenant_id=%s，实际: %s", testTenant, stored.TenantID)
	}
	if len(store.lockedKeys) != 1 || store.lockedKeys[0] != testTenant+"|"+deptER+"|"+shiftDay+"|NURSE" {
		t.Errorf("期望对 (部门, 班次, 角色) 加锁，实际: %v", store.lockedKeys)
	}
}

func TestRequirementService_Create_OverlapThenAdjacent(t *testing.T) {
	svc, store := setupTestRequirementService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-01", "2024-01-07")); err != nil {
		t.Fatalf("首个版本应创建成功: %v", err)
	}

	_, err := svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-05", "2024-01-10"))
	if !errors.Is(err, pkgerrors.ErrOverlap) {
		t.Errorf("期望 ErrOverlap，实际: %v", err)
	}

	if _, err := svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-08", "2024-01-14")); err != nil {
		t.Errorf("相邻区间应创建成功，实际: %v", err)
	}
	if len(store.requirements) != 2 {
		t.Errorf("期望 2 个版本，实际: %d", len(store.requirements))
	}
}

func TestRequirementService_Create_SingleDayBoundaryOverlaps(t *testing.T) {
	svc, _ := setupTestRequirementService()
	ctx := context.Background()

	_, _ = svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-01", "2024-01-07"))
	_, err := svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-07", "2024-01-07"))
	if !errors.Is(err, pkgerrors.ErrOverlap) {
		t.Errorf("闭区间端点相交应返回 ErrOverlap，实际: %v", err)
	}
}

func TestRequirementService_Create_DifferentRoleNoOverlap(t *testing.T) {
	svc, _ := setupTestRequirementService()
	ctx := context.Background()

	_, _ = svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-01", "2024-01-07"))
	req := nurseDayRequest("2024-01-01", "2024-01-07")
	req.RoleCode = "doctor"
	resp, err := svc.Create(ctx, testTenant, testCaller, req)
	if err != nil {
		t.Fatalf("不同角色不应冲突，实际: %v", err)
	}
	if resp.RoleCode != "DOCTOR" {
		t.Errorf("期望角色编码归一为大写，实际: %s", resp.RoleCode)
	}
}

func TestRequirementService_Create_InactiveSkipsOverlap(t *testing.T) {
	svc, _ := setupTestRequirementService()
	ctx := context.Background()

	_, _ = svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-01", "2024-01-07"))
	inactive := false
	req := nurseDayRequest("2024-01-03", "2024-01-05")
	req.IsActive = &inactive
	if _, err := svc.Create(ctx, testTenant, testCaller, req); err != nil {
		t.Errorf("停用版本不参与重叠检查，实际: %v", err)
	}
}

func TestRequirementService_Create_InvalidRange(t *testing.T) {
	svc, _ := setupTestRequirementService()

	_, err := svc.Create(context.Background(), testTenant, testCaller, nurseDayRequest("2024-01-10", "2024-01-01"))
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

func TestRequirementService_Create_ZeroCount(t *testing.T) {
	svc, _ := setupTestRequirementService()

	req := nurseDayRequest("2024-01-01", "2024-01-07")
	req.RequiredCount = 0
	_, err := svc.Create(context.Background(), testTenant, testCaller, req)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

func TestRequirementService_Create_Ownership(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *dto.CreateRequirementRequest)
	}{
		{"其他租户的部门", func(r *dto.CreateRequirementRequest) { r.DepartmentID = deptForeign }},
		{"其他租户的班次", func(r *dto.CreateRequirementRequest) { r.ShiftID = shiftForeign }},
		{"其他部门的班次", func(r *dto.CreateRequirementRequest) { r.ShiftID = shiftICU }},
		{"未登记的角色", func(r *dto.CreateRequirementRequest) { r.RoleCode = "SURGEON" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := setupTestRequirementService()
			req := nurseDayRequest("2024-01-01", "2024-01-07")
			tt.mutate(req)

			_, err := svc.Create(context.Background(), testTenant, testCaller, req)
			if !errors.Is(err, pkgerrors.ErrOwnership) {
				t.Errorf("期望 ErrOwnership，实际: %v", err)
			}
			if len(store.requirements) != 0 {
				t.Errorf("校验失败不应写入，实际: %d", len(store.requirements))
			}
		})
	}
}

func TestRequirementService_TenantIsolation(t *testing.T) {
	svc, _ := setupTestRequirementService()
	ctx := context.Background()

	resp, _ := svc.Create(ctx, testTenant, testCaller, nurseDayRequest("2024-01-01", "2024-01-07"))

	if _, err := svc.Get(ctx, otherTenant, resp.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("其他租户读取应返回 ErrNotFound，实际: %v", err)
	}
	if err := svc.Delete(ctx, otherTenant, testCaller, resp.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("其他租户删除应返回 ErrNotFound，实际: %v", err)
	}
	if _, err := svc.Get(ctx, testTenant, resp.ID); err != nil {
		t.Errorf("本租户版本应保持不变，实际: %v", err)
	}
}

// ── BulkCreate 测试 ──

func TestRequirementService_BulkCreate_Success(t *testing.T) {
	svc, store := setupTestRequirementService()

	list, err := svc.BulkCreate(context.Background(), testTenant, testCaller, &dto.BulkCreateRequirementRequest{
		DepartmentID:  deptER,
		ShiftID:       shiftDay,
		EffectiveFrom: "2024-01-01",
		EffectiveTo:   "2024-01-31",
		Roles:         []dto.RoleCount{{RoleCode: "NURSE", RequiredCount: 2}, {RoleCode: "DOCTOR", RequiredCount: 1}},
	})
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if len(list) != 2 || len(store.requirements) != 2 {
		t.Errorf("期望创建 2 个版本，实际: %d / %d", len(list), len(store.requirements))
	}
}

func TestRequirementService_BulkCreate_RollbackOnOverlap(t *testing.T) {
	svc, store := setupTestRequirementService()
	seedRequirement(store, deptER, shiftDay, "DOCTOR", 1, "2024-01-15", "2024-01-20")

	_, err := svc.BulkCreate(context.Background(), testTenant, testCaller, &dto.BulkCreateRequirementRequest{
		DepartmentID:  deptER,
		ShiftID:       shiftDay,
		EffectiveFrom: "2024-01-01",
		EffectiveTo:   "2024-01-31",
		Roles:         []dto.RoleCount{{RoleCode: "NURSE", RequiredCount: 2}, {RoleCode: "DOCTOR", RequiredCount: 1}},
	})
	if !errors.Is(err, pkgerrors.ErrOverlap) {
		t.Fatalf("期望 ErrOverlap，实际: %v", err)
	}
	if len(store.requirements) != 1 {
		t.Errorf("失败时应整体回滚，期望 1 个版本，实际: %d", len(store.requirements))
	}
}

func TestRequirementService_BulkCreate_DuplicateRole(t *testing.T) {
	svc, _ := setupTestRequirementService()

	_, err := svc.BulkCreate(context.Background(), testTenant, testCaller, &dto.BulkCreateRequirementRequest{
		DepartmentID:  deptER,
		ShiftID:       shiftDay,
		EffectiveFrom: "2024-01-01",
		EffectiveTo:   "2024-01-31",
		Roles:         []dto.RoleCount{{RoleCode: "NURSE", RequiredCount: 2}, {RoleCode: "nurse", RequiredCount: 1}},
	})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

// ── Update 测试 ──

func TestRequirementService_Update_ShrinkOwnRange(t *testing.T) {
	svc, store := setupTestRequirementService()
	v := seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-01", "2024-01-31")

	to := "2024-01-15"
	resp, err := svc.Update(context.Background(), testTenant, testCaller, v.RequirementID, &dto.UpdateRequirementRequest{
		EffectiveTo: &to,
		Version:     1,
	})
	if err != nil {
		t.Fatalf("缩小自身区间不应与自身冲突，实际: %v", err)
	}
	if resp.EffectiveTo != to || resp.Version != 2 {
		t.Errorf("期望 effective_to=%s version=2，实际: %+v", to, resp)
	}
}

func TestRequirementService_Update_RangeOverlapsSibling(t *testing.T) {
	svc, store := setupTestRequirementService()
	seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-01", "2024-01-07")
	v := seedRequirement(store, deptER, shiftDay, "NURSE", 3, "2024-01-08", "2024-01-14")

	from := "2024-01-06"
	_, err := svc.Update(context.Background(), testTenant, testCaller, v.RequirementID, &dto.UpdateRequirementRequest{
		EffectiveFrom: &from,
		Version:       1,
	})
	if !errors.Is(err, pkgerrors.ErrOverlap) {
		t.Errorf("期望 ErrOverlap，实际: %v", err)
	}
	if got := store.requirements[v.RequirementID]; !got.EffectiveFrom.Equal(mustDate("2024-01-08")) {
		t.Errorf("失败时不应修改原记录，实际: %s", got.EffectiveFrom)
	}
}

func TestRequirementService_Update_ReactivateOverlapping(t *testing.T) {
	svc, store := setupTestRequirementService()
	seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-01", "2024-01-07")
	v := seedRequirement(store, deptER, shiftDay, "NURSE", 3, "2024-01-05", "2024-01-10")
	v.IsActive = false

	active := true
	_, err := svc.Update(context.Background(), testTenant, testCaller, v.RequirementID, &dto.UpdateRequirementRequest{
		IsActive: &active,
		Version:  1,
	})
	if !errors.Is(err, pkgerrors.ErrOverlap) {
		t.Errorf("重新启用重叠版本应返回 ErrOverlap，实际: %v", err)
	}
}

func TestRequirementService_Update_CountOnlySkipsOverlapCheck(t *testing.T) {
	svc, store := setupTestRequirementService()
	v := seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-01", "2024-01-07")

	count := 4
	resp, err := svc.Update(context.Background(), testTenant, testCaller, v.RequirementID, &dto.UpdateRequirementRequest{
		RequiredCount: &count,
		Version:       1,
	})
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.RequiredCount != 4 {
		t.Errorf("期望 required_count=4，实际: %d", resp.RequiredCount)
	}
	if len(store.lockedKeys) != 0 {
		t.Errorf("仅修改人数时不需要加锁，实际: %v", store.lockedKeys)
	}
}

func TestRequirementService_Update_StaleVersion(t *testing.T) {
	svc, store := setupTestRequirementService()
	v := seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-01", "2024-01-07")
	v.Version = 3

	count := 4
	_, err := svc.Update(context.Background(), testTenant, testCaller, v.RequirementID, &dto.UpdateRequirementRequest{
		RequiredCount: &count,
		Version:       2,
	})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestRequirementService_Update_InvertedRange(t *testing.T) {
	svc, store := setupTestRequirementService()
	v := seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-05", "2024-01-10")

	to := "2024-01-01"
	_, err := svc.Update(context.Background(), testTenant, testCaller, v.RequirementID, &dto.UpdateRequirementRequest{
		EffectiveTo: &to,
		Version:     1,
	})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

func TestRequirementService_Update_NotFound(t *testing.T) {
	svc, _ := setupTestRequirementService()

	_, err := svc.Update(context.Background(), testTenant, testCaller, "missing", &dto.UpdateRequirementRequest{Version: 1})
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}

// ── 查询 / 删除 ──

func TestRequirementService_QueryActive(t *testing.T) {
	svc, store := setupTestRequirementService()
	seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-01", "2024-01-07")
	seedRequirement(store, deptER, shiftDay, "NURSE", 3, "2024-01-08", "2024-01-14")
	seedRequirement(store, deptER, shiftNight, "NURSE", 1, "2024-01-01", "2024-01-31")
	off := seedRequirement(store, deptER, shiftDay, "DOCTOR", 1, "2024-01-01", "2024-01-31")
	off.IsActive = false

	list, err := svc.QueryActive(context.Background(), testTenant, deptER, shiftDay, mustDate("2024-01-07"))
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if len(list) != 1 || list[0].RequiredCount != 2 {
		t.Errorf("期望仅返回覆盖 01-07 的有效 Day 版本，实际: %+v", list)
	}

	all, _ := svc.QueryActive(context.Background(), testTenant, deptER, "", mustDate("2024-01-08"))
	if len(all) != 2 {
		t.Errorf("不指定班次时期望 2 条，实际: %d", len(all))
	}
}

func TestRequirementService_Delete(t *testing.T) {
	svc, store := setupTestRequirementService()
	v := seedRequirement(store, deptER, shiftDay, "NURSE", 2, "2024-01-01", "2024-01-07")

	if err := svc.Delete(context.Background(), testTenant, testCaller, v.RequirementID); err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if err := svc.Delete(context.Background(), testTenant, testCaller, v.RequirementID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("重复删除期望 ErrNotFound，实际: %v", err)
	}
}
