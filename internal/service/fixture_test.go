package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/pkg/solver"
)

// ── 测试数据 ──

const (
	testTenant  = "tenant-1"
	otherTenant = "tenant-2"
	testCaller  = "user-1"

	deptER      = "10000000-0000-4000-8000-000000000001"
	deptForeign = "10000000-0000-4000-8000-000000000002"
	deptICU     = "10000000-0000-4000-8000-000000000003"

	shiftDay     = "20000000-0000-4000-8000-000000000001"
	shiftForeign = "20000000-0000-4000-8000-000000000002"
	shiftICU     = "20000000-0000-4000-8000-000000000003"
	shiftNight   = "20000000-0000-4000-8000-000000000004"

	staffA       = "30000000-0000-4000-8000-000000000001"
	staffB       = "30000000-0000-4000-8000-000000000002"
	staffC       = "30000000-0000-4000-8000-000000000003"
	staffForeign = "30000000-0000-4000-8000-000000000004"
	staffICU     = "30000000-0000-4000-8000-000000000005"
)

// newTestStore 两个租户：tenant-1 有急诊科（Day/Night 两个班次、三名员工）与 ICU，
// tenant-2 有一个同名班次的科室，用于验证租户隔离
func newTestStore() *mockStore {
	s := newMockStore()
	s.addDepartment(testTenant, deptER, "急诊科")
	s.addDepartment(testTenant, deptICU, "重症监护")
	s.addDepartment(otherTenant, deptForeign, "外部科室")

	s.addShift(testTenant, deptER, shiftDay, "Day", "08:00", "16:00", 8)
	s.addShift(testTenant, deptER, shiftNight, "Night", "20:00", "08:00", 12)
	s.addShift(testTenant, deptICU, shiftICU, "ICU Day", "08:00", "20:00", 12)
	s.addShift(otherTenant, deptForeign, shiftForeign, "Day", "08:00", "16:00", 8)

	s.addStaff(testTenant, deptER, staffA, "Alice", "NURSE")
	s.addStaff(testTenant, deptER, staffB, "Bob", "NURSE")
	s.addStaff(testTenant, deptER, staffC, "Carol", "DOCTOR")
	s.addStaff(testTenant, deptICU, staffICU, "Dave", "NURSE")
	s.addStaff(otherTenant, deptForeign, staffForeign, "Eve", "NURSE")

	s.addRole(nil, "NURSE")
	s.addRole(nil, "DOCTOR")
	return s
}

func mustDate(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedRequirement 直接写入需求版本（绕过业务校验）
func seedRequirement(s *mockStore, deptID, shiftID, role string, count int, from, to string) *model.RequirementVersion {
	r := &model.RequirementVersion{
		RequirementID: s.nextID("req"),
		TenantID:      testTenant,
		DepartmentID:  deptID,
		ShiftID:       shiftID,
		RoleCode:      role,
		RequiredCount: count,
		EffectiveFrom: mustDate(from),
		EffectiveTo:   mustDate(to),
		IsActive:      true,
	}
	r.Version = 1
	s.requirements[r.RequirementID] = r
	return r
}

// seedAllocation 直接写入排班记录
func seedAllocation(s *mockStore, deptID, shiftID, staffID, date, source, status string) *model.Allocation {
	a := &model.Allocation{
		AllocationID: s.nextID("alloc"),
		TenantID:     testTenant,
		DepartmentID: deptID,
		ShiftID:      shiftID,
		StaffID:      staffID,
		Date:         mustDate(date),
		Source:       source,
		Status:       status,
	}
	s.allocations[a.AllocationID] = a
	return a
}

func countAllocations(s *mockStore, match func(a *model.Allocation) bool) int {
	n := 0
	for _, a := range s.allocations {
		if match(a) {
			n++
		}
	}
	return n
}

// ── 外部依赖桩 ──

type stubSolver struct {
	result *solver.Result
	err    error
	calls  int
	last   *solver.Payload
}

func (s *stubSolver) Invoke(_ context.Context, p *solver.Payload) (*solver.Result, error) {
	s.calls++
	s.last = p
	return s.result, s.err
}

type recordingArchive struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (a *recordingArchive) Put(_ context.Context, key string, body []byte) error {
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	a.bodies = append(a.bodies, body)
	return nil
}

func testLogger() *zap.Logger { return zap.NewNop() }
