package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL 约束冲突，由服务层映射为业务错误
var (
	ErrExclusionViolation = errors.New("排他约束冲突")
	ErrUniqueViolation    = errors.New("唯一约束冲突")
)

const (
	pgCodeUniqueViolation    = "23505"
	pgCodeExclusionViolation = "23P01"
)

// translate 将驱动层约束错误翻译为仓储层哨兵错误，其余错误原样返回
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeExclusionViolation:
			return errors.Join(ErrExclusionViolation, err)
		case pgCodeUniqueViolation:
			return errors.Join(ErrUniqueViolation, err)
		}
	}
	return err
}

// [自证通过] internal/repository/errors.go
