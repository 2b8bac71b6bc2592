package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QualityService 质量分聚合器
// 质检项每次增删改后整体重算反馈的质量分；
// 质检结果进入失败类时向生产主管发质量问题事件
type QualityService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewQualityService 创建质量服务
func NewQualityService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *QualityService {
	return &QualityService{db: db, repos: repos, logger: logger}
}

// ComputeQualityScore 由质检结果集计算质量分
// score = 100 * (pass + conditional_pass) / total，空集返回 nil
func ComputeQualityScore(checks []entity.QualityCheck) *float64 {
	if len(checks) == 0 {
		return nil
	}
	var passing int
	for _, check := range checks {
		if check.Result == entity.QualityResultPass || check.Result == entity.QualityResultConditionalPass {
			passing++
		}
	}
	score := 100 * float64(passing) / float64(len(checks))
	return &score
}

// GetFeedback 获取反馈及其质检项
func (s *QualityService) GetFeedback(ctx context.Context, id string) (*entity.Feedback, error) {
	fb, err := s.repos.Quality.FindFeedbackByID(ctx, id)
	if err != nil {
		return nil, err
	}
	checks, err := s.repos.Quality.FindChecksByFeedbackID(ctx, id)
	if err != nil {
		return nil, err
	}
	fb.Checks = checks
	return fb, nil
}

// GetFeedbackByRequest 根据请求ID获取反馈
func (s *QualityService) GetFeedbackByRequest(ctx context.Context, requestID string) (*entity.Feedback, error) {
	fb, err := s.repos.Quality.FindFeedbackByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.GetFeedback(ctx, fb.ID)
}

// RecordQualityCheckRequest 录入质检
type RecordQualityCheckRequest struct {
	CheckName string  `json:"check_name" binding:"required"`
	Result    string  `json:"result" binding:"required"`
	StepID    *string `json:"step_id"`
	Notes     string  `json:"notes"`
}

// RecordQualityCheck 录入质检项并重算质量分
// 新结果为失败类时发质量问题事件（与质检写入同事务）
func (s *QualityService) RecordQualityCheck(ctx context.Context, feedbackID string, req *RecordQualityCheckRequest, userID string) (*entity.QualityCheck, error) {
	if !validQualityResult(req.Result) {
		return nil, fmt.Errorf("%w: 未知的质检结果 %s", ErrValidation, req.Result)
	}
	if err := repository.ValidateID(feedbackID); err != nil {
		return nil, err
	}

	var result *entity.QualityCheck
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var fb entity.Feedback
		if err := tx.WithContext(ctx).Where("id = ?", feedbackID).First(&fb).Error; err != nil {
			return notFoundErr(err)
		}

		now := time.Now()
		check := &entity.QualityCheck{
			ID:         uuid.New().String(),
			FeedbackID: feedbackID,
			StepID:     req.StepID,
			CheckName:  req.CheckName,
			Result:     req.Result,
			Notes:      req.Notes,
			CheckedBy:  userID,
			CheckedAt:  &now,
		}
		if err := tx.WithContext(ctx).Create(check).Error; err != nil {
			return fmt.Errorf("创建质检项失败: %w", err)
		}

		if err := s.recomputeScore(ctx, tx, &fb); err != nil {
			return err
		}

		if entity.IsFailingResult(check.Result) {
			if err := s.emitQualityIssue(ctx, tx, &fb, check); err != nil {
				return err
			}
		}

		result = check
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateQualityCheckRequest 更新质检
type UpdateQualityCheckRequest struct {
	Result *string `json:"result"`
	Notes  *string `json:"notes"`
}

// UpdateQualityCheck 更新质检项并重算质量分
// 质量问题事件只在结果*进入*失败类时触发一次：
// 已处于失败类时再编辑（如改备注）不重复发，离开后再回来才再发
func (s *QualityService) UpdateQualityCheck(ctx context.Context, checkID string, req *UpdateQualityCheckRequest) (*entity.QualityCheck, error) {
	if req.Result != nil && !validQualityResult(*req.Result) {
		return nil, fmt.Errorf("%w: 未知的质检结果 %s", ErrValidation, *req.Result)
	}
	if err := repository.ValidateID(checkID); err != nil {
		return nil, err
	}

	var result *entity.QualityCheck
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var check entity.QualityCheck
		if err := tx.WithContext(ctx).Where("id = ?", checkID).First(&check).Error; err != nil {
			return notFoundErr(err)
		}
		var fb entity.Feedback
		if err := tx.WithContext(ctx).Where("id = ?", check.FeedbackID).First(&fb).Error; err != nil {
			return notFoundErr(err)
		}

		wasFailing := entity.IsFailingResult(check.Result)

		if req.Result != nil {
			check.Result = *req.Result
			now := time.Now()
			check.CheckedAt = &now
		}
		if req.Notes != nil {
			check.Notes = *req.Notes
		}
		if err := tx.WithContext(ctx).Save(&check).Error; err != nil {
			return fmt.Errorf("更新质检项失败: %w", err)
		}

		if err := s.recomputeScore(ctx, tx, &fb); err != nil {
			return err
		}

		if !wasFailing && entity.IsFailingResult(check.Result) {
			if err := s.emitQualityIssue(ctx, tx, &fb, &check); err != nil {
				return err
			}
		}

		result = &check
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetCheck 获取质检项详情
func (s *QualityService) GetCheck(ctx context.Context, id string) (*entity.QualityCheck, error) {
	return s.repos.Quality.FindCheckByID(ctx, id)
}

// DeleteQualityCheck 删除质检项并重算质量分
func (s *QualityService) DeleteQualityCheck(ctx context.Context, checkID string) error {
	if err := repository.ValidateID(checkID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var check entity.QualityCheck
		if err := tx.WithContext(ctx).Where("id = ?", checkID).First(&check).Error; err != nil {
			return notFoundErr(err)
		}
		var fb entity.Feedback
		if err := tx.WithContext(ctx).Where("id = ?", check.FeedbackID).First(&fb).Error; err != nil {
			return notFoundErr(err)
		}

		if err := tx.WithContext(ctx).Delete(&check).Error; err != nil {
			return fmt.Errorf("删除质检项失败: %w", err)
		}
		return s.recomputeScore(ctx, tx, &fb)
	})
}

// recomputeScore 重算并写回质量分（仅在变化时写）
func (s *QualityService) recomputeScore(ctx context.Context, tx *gorm.DB, fb *entity.Feedback) error {
	var checks []entity.QualityCheck
	if err := tx.WithContext(ctx).
		Where("feedback_id = ?", fb.ID).
		Find(&checks).Error; err != nil {
		return fmt.Errorf("查询质检项失败: %w", err)
	}

	score := ComputeQualityScore(checks)
	if scoreEqual(fb.QualityScore, score) {
		return nil
	}

	fb.QualityScore = score
	if err := tx.WithContext(ctx).Save(fb).Error; err != nil {
		return fmt.Errorf("更新质量分失败: %w", err)
	}
	return nil
}

// emitQualityIssue 发质量问题事件，收件人为生产主管角色
func (s *QualityService) emitQualityIssue(ctx context.Context, tx *gorm.DB, fb *entity.Feedback, check *entity.QualityCheck) error {
	s.logger.Warn("Quality issue detected",
		zap.String("feedback_id", fb.ID),
		zap.String("check_name", check.CheckName),
		zap.String("result", check.Result),
	)
	return enqueueEvent(ctx, tx, entity.TopicQualityIssue, entity.JSONB{
		"feedbackId":    fb.ID,
		"type":          "quality_issue",
		"title":         "Quality issue detected",
		"message":       fmt.Sprintf("quality check %q result: %s", check.CheckName, check.Result),
		"recipientType": "role",
		"recipientId":   "production_manager",
		"priority":      "high",
	})
}

func validQualityResult(result string) bool {
	switch result {
	case entity.QualityResultPending, entity.QualityResultPass, entity.QualityResultFail,
		entity.QualityResultConditionalPass, entity.QualityResultNeedsRework:
		return true
	}
	return false
}

func scoreEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
