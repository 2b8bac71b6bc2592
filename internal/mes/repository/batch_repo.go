package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchRepository 生产批次仓库
type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// FindByIDWithChildren 一次读取批次及其全部工序和物料分配
// 级联派生必须基于同一快照，避免 N+1 读取期间子集变化
func (r *BatchRepository) FindByIDWithChildren(ctx context.Context, id string) (*entity.ProductionBatch, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var batch entity.ProductionBatch
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Preload("Allocations").
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &batch, nil
}

// LockByID 在事务中锁定批次行（SELECT ... FOR UPDATE）
// 同一批次上的并发变更在此串行化，保证级联派生读到一致的兄弟工序集
func (r *BatchRepository) LockByID(ctx context.Context, tx *gorm.DB, id string) (*entity.ProductionBatch, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var batch entity.ProductionBatch
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &batch, nil
}

// FindAll 查询批次列表
func (r *BatchRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionBatch, int64, error) {
	var items []entity.ProductionBatch
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionBatch{})

	if requestID := filters["request_id"]; requestID != "" {
		// 非法uuid不可能匹配任何行，直接短路为空结果
		if ValidateID(requestID) != nil {
			return []entity.ProductionBatch{}, 0, nil
		}
		query = query.Where("request_id = ?", requestID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
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

// FindByRequestID 查询某个请求下的全部批次
func (r *BatchRepository) FindByRequestID(ctx context.Context, requestID string) ([]entity.ProductionBatch, error) {
	if err := ValidateID(requestID); err != nil {
		return nil, err
	}
	var batches []entity.ProductionBatch
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&batches).Error
	return batches, err
}

// GenerateNumber 生成批次号 B-YYYYMMDDnnnn
func (r *BatchRepository) GenerateNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("B-%s", time.Now().Format("20060102"))
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionBatch{}).
		Where("batch_number LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}
