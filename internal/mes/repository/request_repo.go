package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// RequestRepository 生产请求仓库
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// FindByIDWithBatches 查找请求及其全部批次（级联派生用）
func (r *RequestRepository) FindByIDWithBatches(ctx context.Context, id string) (*entity.ProductionRequest, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var req entity.ProductionRequest
	err := r.db.WithContext(ctx).
		Preload("Batches").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// FindAll 查询生产请求列表
func (r *RequestRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionRequest, int64, error) {
	var items []entity.ProductionRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionRequest{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := filters["priority"]; priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if product := filters["product_name"]; product != "" {
		query = query.Where("product_name ILIKE ?", "%"+product+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// GenerateCode 生成请求编码 PR-YYYYMMDDnnnn
func (r *RequestRepository) GenerateCode(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("PR-%s", time.Now().Format("20060102"))
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionRequest{}).
		Where("request_code LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}
