package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/internal/api/middleware"
	"github.com/sourav-maji/RosterPro/internal/service"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
	"github.com/sourav-maji/RosterPro/pkg/response"
	"github.com/sourav-maji/RosterPro/pkg/solver"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Requirement *RequirementHandler
	Allocation  *AllocationHandler
	Scheduler   *SchedulerHandler
	Coverage    *CoverageHandler
	Export      *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Requirement: NewRequirementHandler(svc.Requirement),
		Allocation:  NewAllocationHandler(svc.Allocation),
		Scheduler:   NewSchedulerHandler(svc.Scheduler),
		Coverage:    NewCoverageHandler(svc.Coverage),
		Export:      NewExportHandler(svc.Export),
	}
}

// ── 业务码 ──
//
// 各模块基数 + 错误分类偏移，例如需求模块重叠冲突为 20004。

const (
	codeRequirement = 20000
	codeAllocation  = 21000
	codeScheduler   = 22000
	codeCoverage    = 23000
	codeExport      = 24000
)

const (
	offsetValidation = iota + 1
	offsetOwnership
	offsetNotFound
	offsetOverlap
	offsetConflict
	offsetOptimisticLock
	offsetEmptyInput
	offsetInvalidResult
	offsetSolverRejected
	offsetSolverUnavailable
)

// handleError 按错误分类映射 HTTP 状态码与业务码；未分类错误一律 500
func handleError(c *gin.Context, base int, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, base+offsetValidation, err.Error())
	case errors.Is(err, pkgerrors.ErrOwnership):
		response.Unprocessable(c, base+offsetOwnership, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, base+offsetNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrOverlap):
		response.Conflict(c, base+offsetOverlap, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, base+offsetConflict, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, base+offsetOptimisticLock, pkgerrors.ErrOptimisticLock.Error())
	case errors.Is(err, pkgerrors.ErrEmptyInput):
		response.Unprocessable(c, base+offsetEmptyInput, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidResult):
		response.Unprocessable(c, base+offsetInvalidResult, err.Error())
	case errors.Is(err, pkgerrors.ErrSolverRejected):
		var rejected *solver.RejectedError
		if errors.As(err, &rejected) {
			response.ErrorWithDetails(c, http.StatusBadGateway, base+offsetSolverRejected, pkgerrors.ErrSolverRejected.Error(), gin.H{
				"status": rejected.StatusCode,
				"detail": rejected.Detail,
			})
			return
		}
		response.Error(c, http.StatusBadGateway, base+offsetSolverRejected, pkgerrors.ErrSolverRejected.Error())
	case errors.Is(err, pkgerrors.ErrSolverUnavailable):
		response.Error(c, http.StatusServiceUnavailable, base+offsetSolverUnavailable, pkgerrors.ErrSolverUnavailable.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// codeBodyTooLarge 请求体超限（与认证、限流同属通用码段）
const codeBodyTooLarge = 10005

// badRequest 参数绑定失败；请求体超限单独返回 413
func badRequest(c *gin.Context, base int, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "请求体过大")
		return
	}
	response.BadRequest(c, base+offsetValidation, "参数校验失败: "+err.Error())
}
