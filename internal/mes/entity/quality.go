package entity

import (
	"time"
)

// QualityCheckResult 质检结果
const (
	QualityResultPending         = "pending"
	QualityResultPass            = "pass"
	QualityResultFail            = "fail"
	QualityResultConditionalPass = "conditional_pass"
	QualityResultNeedsRework     = "needs_rework"
)

// Feedback 请求级反馈记录，质量分由其质检项派生
// QualityScore ∈ [0,100]，无质检项时为 null
type Feedback struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RequestID    string     `json:"request_id" gorm:"type:uuid;not null;uniqueIndex"`
	QualityScore *float64   `json:"quality_score" gorm:"type:decimal(5,2)"`
	Status       string     `json:"status" gorm:"size:20;not null;default:open"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Checks []QualityCheck `json:"checks,omitempty" gorm:"foreignKey:FeedbackID"`
}

func (Feedback) TableName() string {
	return "mes_feedbacks"
}

// QualityCheck 质检项，隶属于一条反馈记录，可选关联到某道工序
type QualityCheck struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	FeedbackID string     `json:"feedback_id" gorm:"type:uuid;not null;index"`
	StepID     *string    `json:"step_id" gorm:"type:uuid"`
	CheckName  string     `json:"check_name" gorm:"size:128;not null"`
	Result     string     `json:"result" gorm:"size:20;not null;default:pending"`
	Notes      string     `json:"notes" gorm:"type:text"`
	CheckedBy  string     `json:"checked_by" gorm:"size:64"`
	CheckedAt  *time.Time `json:"checked_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (QualityCheck) TableName() string {
	return "mes_quality_checks"
}

// IsFailingResult 判断质检结果是否属于失败类（fail / needs_rework）
func IsFailingResult(result string) bool {
	return result == QualityResultFail || result == QualityResultNeedsRework
}
