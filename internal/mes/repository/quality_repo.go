package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// QualityRepository 反馈与质检仓库
type QualityRepository struct {
	db *gorm.DB
}

func NewQualityRepository(db *gorm.DB) *QualityRepository {
	return &QualityRepository{db: db}
}

// FindFeedbackByID 根据ID查找反馈
func (r *QualityRepository) FindFeedbackByID(ctx context.Context, id string) (*entity.Feedback, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var fb entity.Feedback
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&fb).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &fb, nil
}

// FindFeedbackByRequestID 根据请求ID查找反馈
func (r *QualityRepository) FindFeedbackByRequestID(ctx context.Context, requestID string) (*entity.Feedback, error) {
	if err := ValidateID(requestID); err != nil {
		return nil, err
	}
	var fb entity.Feedback
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&fb).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &fb, nil
}

// FindCheckByID 根据ID查找质检项
func (r *QualityRepository) FindCheckByID(ctx context.Context, id string) (*entity.QualityCheck, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var check entity.QualityCheck
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&check).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &check, nil
}

// FindChecksByFeedbackID 查询反馈下全部质检项（质量分重算用）
func (r *QualityRepository) FindChecksByFeedbackID(ctx context.Context, feedbackID string) ([]entity.QualityCheck, error) {
	if err := ValidateID(feedbackID); err != nil {
		return nil, err
	}
	var checks []entity.QualityCheck
	err := r.db.WithContext(ctx).
		Where("feedback_id = ?", feedbackID).
		Order("created_at ASC").
		Find(&checks).Error
	return checks, err
}
