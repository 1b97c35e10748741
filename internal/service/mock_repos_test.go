package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// ── mockStore：按租户隔离的内存数据，事务以快照/回滚模拟 ──

type mockStore struct {
	departments  map[string]*model.Department
	shifts       map[string]*model.Shift
	staff        map[string]*model.Staff
	roles        []model.Role
	requirements map[string]*model.RequirementVersion
	allocations  map[string]*model.Allocation
	changeLogs   []model.AllocationChangeLog
	runs         map[string]*model.ScheduleRun

	seq         int
	lockedKeys  []string
	runCreateFn func(run *model.ScheduleRun) error // 非 nil 时替代 ScheduleRun.Create
}

func newMockStore() *mockStore {
	return &mockStore{
		departments:  make(map[string]*model.Department),
		shifts:       make(map[string]*model.Shift),
		staff:        make(map[string]*model.Staff),
		requirements: make(map[string]*model.RequirementVersion),
		allocations:  make(map[string]*model.Allocation),
		runs:         make(map[string]*model.ScheduleRun),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

type mockSnapshot struct {
	requirements map[string]model.RequirementVersion
	allocations  map[string]model.Allocation
	changeLogs   []model.AllocationChangeLog
	runs         map[string]model.ScheduleRun
}

func (s *mockStore) snapshot() mockSnapshot {
	snap := mockSnapshot{
		requirements: make(map[string]model.RequirementVersion, len(s.requirements)),
		allocations:  make(map[string]model.Allocation, len(s.allocations)),
		changeLogs:   append([]model.AllocationChangeLog(nil), s.changeLogs...),
		runs:         make(map[string]model.ScheduleRun, len(s.runs)),
	}
	for k, v := range s.requirements {
		snap.requirements[k] = *v
	}
	for k, v := range s.allocations {
		snap.allocations[k] = *v
	}
	for k, v := range s.runs {
		snap.runs[k] = *v
	}
	return snap
}

func (s *mockStore) restore(snap mockSnapshot) {
	s.requirements = make(map[string]*model.RequirementVersion, len(snap.requirements))
	for k, v := range snap.requirements {
		v := v
		s.requirements[k] = &v
	}
	s.allocations = make(map[string]*model.Allocation, len(snap.allocations))
	for k, v := range snap.allocations {
		v := v
		s.allocations[k] = &v
	}
	s.changeLogs = snap.changeLogs
	s.runs = make(map[string]*model.ScheduleRun, len(snap.runs))
	for k, v := range snap.runs {
		v := v
		s.runs[k] = &v
	}
}

// ── 目录数据 seed ──

func (s *mockStore) addDepartment(tenantID, id, name string) *model.Department {
	d := &model.Department{DepartmentID: id, TenantID: tenantID, Name: name, IsActive: true}
	s.departments[id] = d
	return d
}

func (s *mockStore) addShift(tenantID, deptID, id, name, start, end string, hours float64) *model.Shift {
	sh := &model.Shift{
		ShiftID:       id,
		TenantID:      tenantID,
		DepartmentID:  deptID,
		Name:          name,
		StartTime:     start,
		EndTime:       end,
		DurationHours: hours,
		Type:          model.ShiftTypeNormal,
		IsActive:      true,
	}
	s.shifts[id] = sh
	return sh
}

func (s *mockStore) addStaff(tenantID, deptID, id, name, role string) *model.Staff {
	st := &model.Staff{StaffID: id, TenantID: tenantID, DepartmentID: deptID, Name: name, RoleCode: role, IsActive: true}
	s.staff[id] = st
	return st
}

func (s *mockStore) addRole(tenantID *string, code string) *model.Role {
	s.roles = append(s.roles, model.Role{RoleID: s.nextID("role"), TenantID: tenantID, Code: code, Name: code})
	return &s.roles[len(s.roles)-1]
}

// ── mockProvider ──

type mockProvider struct {
	store *mockStore
}

func (p *mockProvider) ForTenant(tenantID string) *repository.Repository {
	repo := newMockRepository(p.store, tenantID)
	repo.RunInTx = func(_ context.Context, fn func(tx *repository.Repository) error) error {
		snap := p.store.snapshot()
		if err := fn(newMockRepository(p.store, tenantID)); err != nil {
			p.store.restore(snap)
			return err
		}
		return nil
	}
	return repo
}

func newMockRepository(store *mockStore, tenantID string) *repository.Repository {
	return &repository.Repository{
		TenantID:    tenantID,
		Requirement: &mockRequirementRepo{store: store, tenantID: tenantID},
		Allocation:  &mockAllocationRepo{store: store, tenantID: tenantID},
		ChangeLog:   &mockChangeLogRepo{store: store, tenantID: tenantID},
		ScheduleRun: &mockScheduleRunRepo{store: store, tenantID: tenantID},
		Directory:   &mockDirectoryRepo{store: store, tenantID: tenantID},
	}
}

func containsDate(dates []time.Time, d time.Time) bool {
	for _, x := range dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ── Mock RequirementRepository ──

type mockRequirementRepo struct {
	store    *mockStore
	tenantID string
}

func (m *mockRequirementRepo) Create(_ context.Context, req *model.RequirementVersion) error {
	req.TenantID = m.tenantID
	if req.RequirementID == "" {
		req.RequirementID = m.store.nextID("req")
	}
	if req.Version == 0 {
		req.Version = 1
	}
	cp := *req
	cp.Shift = nil
	m.store.requirements[req.RequirementID] = &cp
	return nil
}

func (m *mockRequirementRepo) GetByID(_ context.Context, id string) (*model.RequirementVersion, error) {
	r, ok := m.store.requirements[id]
	if !ok || r.TenantID != m.tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	cp.Shift = m.store.shifts[r.ShiftID]
	return &cp, nil
}

func (m *mockRequirementRepo) Update(_ context.Context, req *model.RequirementVersion) error {
	r, ok := m.store.requirements[req.RequirementID]
	if !ok || r.TenantID != m.tenantID || r.Version != req.Version {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version++
	cp := *req
	cp.Shift = nil
	m.store.requirements[req.RequirementID] = &cp
	return nil
}

func (m *mockRequirementRepo) Delete(_ context.Context, id, _ string) error {
	r, ok := m.store.requirements[id]
	if !ok || r.TenantID != m.tenantID {
		return gorm.ErrRecordNotFound
	}
	delete(m.store.requirements, id)
	return nil
}

func (m *mockRequirementRepo) LockKey(_ context.Context, key repository.RequirementKey) error {
	m.store.lockedKeys = append(m.store.lockedKeys, m.tenantID+"|"+key.String())
	return nil
}

func (m *mockRequirementRepo) FindOverlapping(_ context.Context, key repository.RequirementKey, from, to time.Time, excludeID string) ([]model.RequirementVersion, error) {
	var list []model.RequirementVersion
	for _, r := range m.store.requirements {
		if r.TenantID != m.tenantID || !r.IsActive || r.RequirementID == excludeID {
			continue
		}
		if r.DepartmentID != key.DepartmentID || r.ShiftID != key.ShiftID || r.RoleCode != key.RoleCode {
			continue
		}
		if model.Overlaps(r.EffectiveFrom, r.EffectiveTo, from, to) {
			list = append(list, *r)
		}
	}
	return list, nil
}

func (m *mockRequirementRepo) List(_ context.Context, filter repository.RequirementFilter) ([]model.RequirementVersion, error) {
	var list []model.RequirementVersion
	for _, r := range m.store.requirements {
		if r.TenantID != m.tenantID || r.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.ShiftID != "" && r.ShiftID != filter.ShiftID {
			continue
		}
		if filter.Date != nil && !r.Covers(*filter.Date) {
			continue
		}
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		cp := *r
		cp.Shift = m.store.shifts[r.ShiftID]
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ShiftID != list[j].ShiftID {
			return list[i].ShiftID < list[j].ShiftID
		}
		if list[i].RoleCode != list[j].RoleCode {
			return list[i].RoleCode < list[j].RoleCode
		}
		return list[i].EffectiveFrom.Before(list[j].EffectiveFrom)
	})
	return list, nil
}

// ── Mock AllocationRepository ──

type mockAllocationRepo struct {
	store    *mockStore
	tenantID string
}

// uniqueViolation 模拟 uk_allocations_tenant_staff_date
func (m *mockAllocationRepo) uniqueViolation(a *model.Allocation) bool {
	for _, x := range m.store.allocations {
		if x.TenantID == a.TenantID && x.StaffID == a.StaffID && x.Date.Equal(a.Date) && x.AllocationID != a.AllocationID {
			return true
		}
	}
	return false
}

func (m *mockAllocationRepo) Create(_ context.Context, alloc *model.Allocation) error {
	alloc.TenantID = m.tenantID
	if alloc.AllocationID == "" {
		alloc.AllocationID = m.store.nextID("alloc")
	}
	if m.uniqueViolation(alloc) {
		return fmt.Errorf("%w: duplicate key", pkgerrors.ErrConflict)
	}
	cp := *alloc
	cp.Shift, cp.Staff = nil, nil
	m.store.allocations[alloc.AllocationID] = &cp
	return nil
}

func (m *mockAllocationRepo) CreateBatch(ctx context.Context, allocs []model.Allocation) error {
	for i := range allocs {
		if err := m.Create(ctx, &allocs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockAllocationRepo) withRelations(a *model.Allocation) model.Allocation {
	cp := *a
	cp.Shift = m.store.shifts[a.ShiftID]
	cp.Staff = m.store.staff[a.StaffID]
	return cp
}

func (m *mockAllocationRepo) GetByID(_ context.Context, id string) (*model.Allocation, error) {
	a, ok := m.store.allocations[id]
	if !ok || a.TenantID != m.tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.withRelations(a)
	return &cp, nil
}

func (m *mockAllocationRepo) Update(_ context.Context, alloc *model.Allocation) error {
	a, ok := m.store.allocations[alloc.AllocationID]
	if !ok || a.TenantID != m.tenantID {
		return gorm.ErrRecordNotFound
	}
	next := *a
	next.StaffID = alloc.StaffID
	next.Status = alloc.Status
	next.Source = alloc.Source
	next.Notes = alloc.Notes
	next.UpdatedBy = alloc.UpdatedBy
	if m.uniqueViolation(&next) {
		return fmt.Errorf("%w: duplicate key", pkgerrors.ErrConflict)
	}
	m.store.allocations[alloc.AllocationID] = &next
	return nil
}

func (m *mockAllocationRepo) DeleteSolverRows(_ context.Context, departmentID string, dates []time.Time) (int64, error) {
	var n int64
	for id, a := range m.store.allocations {
		if a.TenantID == m.tenantID && a.DepartmentID == departmentID && a.Source == model.SourceSolver && containsDate(dates, a.Date) {
			delete(m.store.allocations, id)
			n++
		}
	}
	return n, nil
}

func (m *mockAllocationRepo) ListByStaffDates(_ context.Context, staffIDs []string, dates []time.Time) ([]model.Allocation, error) {
	var list []model.Allocation
	for _, a := range m.store.allocations {
		if a.TenantID == m.tenantID && containsString(staffIDs, a.StaffID) && containsDate(dates, a.Date) {
			list = append(list, *a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AllocationID < list[j].AllocationID })
	return list, nil
}

func (m *mockAllocationRepo) ExistsForStaffDate(_ context.Context, staffID string, date time.Time, excludeID string) (bool, error) {
	for _, a := range m.store.allocations {
		if a.TenantID == m.tenantID && a.StaffID == staffID && a.Date.Equal(date) && a.AllocationID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAllocationRepo) List(_ context.Context, f repository.AllocationFilter, offset, limit int) ([]model.Allocation, int64, error) {
	var list []model.Allocation
	for _, a := range m.store.allocations {
		switch {
		case a.TenantID != m.tenantID,
			f.DepartmentID != "" && a.DepartmentID != f.DepartmentID,
			f.ShiftID != "" && a.ShiftID != f.ShiftID,
			f.StaffID != "" && a.StaffID != f.StaffID,
			f.Source != "" && a.Source != f.Source,
			f.Status != "" && a.Status != f.Status,
			f.From != nil && a.Date.Before(*f.From),
			f.To != nil && a.Date.After(*f.To):
			continue
		}
		list = append(list, m.withRelations(a))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		if list[i].ShiftID != list[j].ShiftID {
			return list[i].ShiftID < list[j].ShiftID
		}
		return list[i].StaffID < list[j].StaffID
	})
	total := int64(len(list))
	if limit > 0 {
		if offset >= len(list) {
			return []model.Allocation{}, total, nil
		}
		end := offset + limit
		if end > len(list) {
			end = len(list)
		}
		list = list[offset:end]
	}
	return list, total, nil
}

func (m *mockAllocationRepo) CountCovered(_ context.Context, departmentID string, date time.Time) ([]repository.ShiftRoleCount, error) {
	counts := make(map[[2]string]int)
	for _, a := range m.store.allocations {
		if a.TenantID != m.tenantID || a.DepartmentID != departmentID || !a.Date.Equal(date) || !a.Counted() {
			continue
		}
		st, ok := m.store.staff[a.StaffID]
		if !ok || st.TenantID != m.tenantID {
			continue
		}
		counts[[2]string{a.ShiftID, st.RoleCode}]++
	}
	var rows []repository.ShiftRoleCount
	for k, n := range counts {
		rows = append(rows, repository.ShiftRoleCount{ShiftID: k[0], RoleCode: k[1], Actual: n})
	}
	return rows, nil
}

// ── Mock ChangeLogRepository ──

type mockChangeLogRepo struct {
	store    *mockStore
	tenantID string
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.AllocationChangeLog) error {
	log.TenantID = m.tenantID
	if log.ChangeLogID == "" {
		log.ChangeLogID = m.store.nextID("log")
	}
	log.CreatedAt = time.Now()
	m.store.changeLogs = append(m.store.changeLogs, *log)
	return nil
}

func (m *mockChangeLogRepo) ListByAllocation(_ context.Context, allocationID string, offset, limit int) ([]model.AllocationChangeLog, int64, error) {
	var list []model.AllocationChangeLog
	for _, l := range m.store.changeLogs {
		if l.TenantID == m.tenantID && l.AllocationID == allocationID {
			list = append(list, l)
		}
	}
	total := int64(len(list))
	if offset >= len(list) {
		return []model.AllocationChangeLog{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

// ── Mock ScheduleRunRepository ──

type mockScheduleRunRepo struct {
	store    *mockStore
	tenantID string
}

func (m *mockScheduleRunRepo) Create(_ context.Context, run *model.ScheduleRun) error {
	if m.store.runCreateFn != nil {
		if err := m.store.runCreateFn(run); err != nil {
			return err
		}
	}
	run.TenantID = m.tenantID
	if run.RunID == "" {
		run.RunID = m.store.nextID("run")
	}
	run.CreatedAt = time.Now()
	cp := *run
	m.store.runs[run.RunID] = &cp
	return nil
}

func (m *mockScheduleRunRepo) GetByID(_ context.Context, id string) (*model.ScheduleRun, error) {
	r, ok := m.store.runs[id]
	if !ok || r.TenantID != m.tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockScheduleRunRepo) ListRecent(_ context.Context, departmentID string, limit int) ([]model.ScheduleRun, error) {
	var list []model.ScheduleRun
	for _, r := range m.store.runs {
		if r.TenantID != m.tenantID || (departmentID != "" && r.DepartmentID != departmentID) {
			continue
		}
		cp := *r
		cp.InputPayload, cp.OutputPayload, cp.Mapping = nil, nil, nil
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RunID > list[j].RunID })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// ── Mock DirectoryRepository ──

type mockDirectoryRepo struct {
	store    *mockStore
	tenantID string
}

func (m *mockDirectoryRepo) GetDepartment(_ context.Context, id string) (*model.Department, error) {
	d, ok := m.store.departments[id]
	if !ok || d.TenantID != m.tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (m *mockDirectoryRepo) GetShift(_ context.Context, id string) (*model.Shift, error) {
	sh, ok := m.store.shifts[id]
	if !ok || sh.TenantID != m.tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return sh, nil
}

func (m *mockDirectoryRepo) GetStaff(_ context.Context, id string) (*model.Staff, error) {
	st, ok := m.store.staff[id]
	if !ok || st.TenantID != m.tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return st, nil
}

func (m *mockDirectoryRepo) GetRole(_ context.Context, code string) (*model.Role, error) {
	var platform *model.Role
	for i := range m.store.roles {
		r := &m.store.roles[i]
		if r.Code != code {
			continue
		}
		if r.TenantID != nil && *r.TenantID == m.tenantID {
			return r, nil
		}
		if r.TenantID == nil && platform == nil {
			platform = r
		}
	}
	if platform != nil {
		return platform, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDirectoryRepo) ListShifts(_ context.Context, departmentID string, activeOnly bool) ([]model.Shift, error) {
	var list []model.Shift
	for _, sh := range m.store.shifts {
		if sh.TenantID == m.tenantID && sh.DepartmentID == departmentID && (!activeOnly || sh.IsActive) {
			list = append(list, *sh)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartTime != list[j].StartTime {
			return list[i].StartTime < list[j].StartTime
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (m *mockDirectoryRepo) ListStaff(_ context.Context, departmentID string, activeOnly bool) ([]model.Staff, error) {
	var list []model.Staff
	for _, st := range m.store.staff {
		if st.TenantID == m.tenantID && st.DepartmentID == departmentID && (!activeOnly || st.IsActive) {
			list = append(list, *st)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StaffID < list[j].StaffID })
	return list, nil
}

func (m *mockDirectoryRepo) ListShiftsByIDs(_ context.Context, ids []string) ([]model.Shift, error) {
	var list []model.Shift
	for _, id := range ids {
		if sh, ok := m.store.shifts[id]; ok && sh.TenantID == m.tenantID {
			list = append(list, *sh)
		}
	}
	return list, nil
}

func (m *mockDirectoryRepo) ListStaffByIDs(_ context.Context, ids []string) ([]model.Staff, error) {
	var list []model.Staff
	for _, id := range ids {
		if st, ok := m.store.staff[id]; ok && st.TenantID == m.tenantID {
			list = append(list, *st)
		}
	}
	return list, nil
}

func (m *mockDirectoryRepo) ListRoles(_ context.Context) ([]model.Role, error) {
	var list []model.Role
	for _, r := range m.store.roles {
		if r.TenantID == nil || *r.TenantID == m.tenantID {
			list = append(list, r)
		}
	}
	// code ASC, tenant_id NULLS LAST
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Code != list[j].Code {
			return list[i].Code < list[j].Code
		}
		return list[i].TenantID != nil && list[j].TenantID == nil
	})
	return list, nil
}
