package errors

import (
	"errors"

	"gorm.io/gorm"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// IsUniqueViolation 是否为唯一约束冲突（需 gorm.Config.TranslateError = true）
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
