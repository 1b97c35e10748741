// Package errors 定义排班核心的错误分类。
//
// 各 Service 使用 fmt.Errorf("%w: ...", ErrXxx) 携带上下文，
// Handler 层通过 errors.Is 判定分类并映射为 HTTP 状态码与业务码。
package errors

import "errors"

var (
	// ErrValidation 输入格式错误或取值越界，不可重试
	ErrValidation = errors.New("参数校验失败")
	// ErrOwnership 引用的实体不属于当前租户
	ErrOwnership = errors.New("引用的资源不属于当前租户")
	// ErrOverlap 同一 (部门, 班次, 角色) 存在日期区间重叠的有效需求版本
	ErrOverlap = errors.New("存在日期区间重叠的有效需求版本")
	// ErrConflict 同一员工同一日期已存在排班记录
	ErrConflict = errors.New("该员工当日已有排班")
	// ErrNotFound 操作的实体不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrEmptyInput 缺少生成求解请求所需的前置数据
	ErrEmptyInput = errors.New("缺少排班前置数据")
	// ErrInvalidResult 求解结果格式不合法
	ErrInvalidResult = errors.New("求解结果无效")
	// ErrSolverUnavailable 求解服务网络错误或超时
	ErrSolverUnavailable = errors.New("求解服务不可用")
	// ErrSolverRejected 求解服务返回非成功响应
	ErrSolverRejected = errors.New("求解服务拒绝请求")
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
)
