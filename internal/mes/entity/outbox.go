package entity

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB PostgreSQL jsonb 字段
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// 出站事件主题，对应对端服务的接收端点
const (
	TopicQueueAdd       = "machine_queue.add"
	TopicQueueCancel    = "machine_queue.cancel"
	TopicReserve        = "inventory.reserve"
	TopicFeedbackStatus = "feedback.status_update"
	TopicQualityIssue   = "feedback.quality_issue"
)

// OutboxEvent 出站通知事件
// 与实体变更写在同一个本地事务里，由调度器异步投递；
// SentAt 非空表示已投递，Retries 累计失败次数用于退避
type OutboxEvent struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Topic         string     `json:"topic" gorm:"size:50;not null;index"`
	Payload       JSONB      `json:"payload" gorm:"type:jsonb;not null"`
	Retries       int        `json:"retries" gorm:"default:0"`
	NextAttemptAt time.Time  `json:"next_attempt_at" gorm:"index"`
	LastError     string     `json:"last_error" gorm:"type:text"`
	SentAt        *time.Time `json:"sent_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (OutboxEvent) TableName() string {
	return "mes_outbox_events"
}
