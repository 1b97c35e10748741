package seed

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDemo(t *testing.T) *Fixture {
	t.Helper()
	f, err := os.Open("testdata/demo.yaml")
	require.NoError(t, err)
	defer f.Close()

	fx, err := Load(f)
	require.NoError(t, err)
	return fx
}

func TestLoad_Demo(t *testing.T) {
	fx := loadDemo(t)
	assert.Equal(t, "tenant-demo", fx.TenantID)
	require.Len(t, fx.Departments, 1)
	assert.Len(t, fx.Departments[0].Shifts, 2)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(strings.NewReader("tenant_id: t1\ndepartmentz: []\n"))
	require.Error(t, err)
}

func TestLoad_MissingTenant(t *testing.T) {
	_, err := Load(strings.NewReader("departments: []\n"))
	require.Error(t, err)
}

func TestBuild_Demo(t *testing.T) {
	data, err := loadDemo(t).Build()
	require.NoError(t, err)

	require.Len(t, data.Roles, 2)
	assert.Equal(t, "NURSE", data.Roles[0].Code)
	require.NotNil(t, data.Roles[0].TenantID)
	assert.Equal(t, "tenant-demo", *data.Roles[0].TenantID)

	require.Len(t, data.Departments, 1)
	deptID := data.Departments[0].DepartmentID

	require.Len(t, data.Shifts, 2)
	assert.Equal(t, 8.0, data.Shifts[0].DurationHours)
	assert.Equal(t, "NORMAL", data.Shifts[0].Type)
	assert.Equal(t, 12.0, data.Shifts[1].DurationHours)
	assert.Equal(t, "NIGHT", data.Shifts[1].Type)
	for _, s := range data.Shifts {
		assert.Equal(t, deptID, s.DepartmentID)
	}

	require.Len(t, data.Staff, 3)
	assert.Equal(t, "NURSE", data.Staff[0].RoleCode)

	require.Len(t, data.Requirements, 2)
	assert.Equal(t, data.Shifts[0].ShiftID, data.Requirements[0].ShiftID)
	assert.Equal(t, data.Shifts[1].ShiftID, data.Requirements[1].ShiftID)
	assert.Equal(t, 1, data.Requirements[0].Version)
	assert.Equal(t, "2024-01-01", data.Requirements[0].EffectiveFrom.Format("2006-01-02"))
}

func TestBuild_StableIDs(t *testing.T) {
	a, err := loadDemo(t).Build()
	require.NoError(t, err)
	b, err := loadDemo(t).Build()
	require.NoError(t, err)

	assert.Equal(t, a.Departments[0].DepartmentID, b.Departments[0].DepartmentID)
	assert.Equal(t, a.Staff[2].StaffID, b.Staff[2].StaffID)
	assert.Equal(t, a.Requirements[1].RequirementID, b.Requirements[1].RequirementID)
}

func TestID_TenantIsolation(t *testing.T) {
	assert.NotEqual(t, ID("t1", "department", "er"), ID("t2", "department", "er"))
	assert.NotEqual(t, ID("t1", "shift", "er", "day"), ID("t1", "shift", "icu", "day"))
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"未知班次", `
tenant_id: t1
departments:
  - key: er
    name: ER
    requirements:
      - {shift: day, role: NURSE, count: 1, from: "2024-01-01", to: "2024-01-31"}
`},
		{"区间倒置", `
tenant_id: t1
departments:
  - key: er
    name: ER
    shifts:
      - {key: day, name: Day, start: "08:00", end: "16:00"}
    requirements:
      - {shift: day, role: NURSE, count: 1, from: "2024-02-01", to: "2024-01-31"}
`},
		{"人数为零", `
tenant_id: t1
departments:
  - key: er
    name: ER
    shifts:
      - {key: day, name: Day, start: "08:00", end: "16:00"}
    requirements:
      - {shift: day, role: NURSE, count: 0, from: "2024-01-01", to: "2024-01-31"}
`},
		{"部门缺少 key", `
tenant_id: t1
departments:
  - name: ER
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, err := Load(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			_, err = fx.Build()
			assert.Error(t, err)
		})
	}
}
