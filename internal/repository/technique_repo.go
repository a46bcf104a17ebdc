package repository

import (
	"context"

	"gorm.io/gorm"

	"aptcare/backend/internal/model"
)

// TechniqueRepository 技能数据访问接口
type TechniqueRepository interface {
	GetByID(ctx context.Context, id string) (*model.Technique, error)
	List(ctx context.Context) ([]model.Technique, error)
}

// IssueRepository 故障类型数据访问接口
type IssueRepository interface {
	GetByID(ctx context.Context, id string) (*model.Issue, error)
}

// ── Technique Repository 实现 ──

type techniqueRepo struct {
	db *gorm.DB
}

func NewTechniqueRepo(db *gorm.DB) TechniqueRepository {
	return &techniqueRepo{db: db}
}

func (r *techniqueRepo) GetByID(ctx context.Context, id string) (*model.Technique, error) {
	var technique model.Technique
	err := r.db.WithContext(ctx).Where("technique_id = ?", id).First(&technique).Error
	if err != nil {
		return nil, err
	}
	return &technique, nil
}

func (r *techniqueRepo) List(ctx context.Context) ([]model.Technique, error) {
	var techniques []model.Technique
	err := r.db.WithContext(ctx).Order("name").Find(&techniques).Error
	return techniques, err
}

// ── Issue Repository 实现 ──

type issueRepo struct {
	db *gorm.DB
}

func NewIssueRepo(db *gorm.DB) IssueRepository {
	return &issueRepo{db: db}
}

func (r *issueRepo) GetByID(ctx context.Context, id string) (*model.Issue, error) {
	var issue model.Issue
	err := r.db.WithContext(ctx).
		Preload("Technique").
		Where("issue_id = ?", id).
		First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// [自证通过] internal/repository/technique_repo.go
