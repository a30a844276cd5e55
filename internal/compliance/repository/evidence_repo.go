package repository

import (
	"context"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
)

// EvidenceRepository 证据请求仓库
type EvidenceRepository struct {
	db *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Create 创建证据请求
func (r *EvidenceRepository) Create(ctx context.Context, req *entity.EvidenceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// FindByID 根据ID查询，包含提交记录及其文档审核
func (r *EvidenceRepository) FindByID(ctx context.Context, id string) (*entity.EvidenceRequest, error) {
	var req entity.EvidenceRequest
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Review").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &req, nil
}

// List 证据请求列表
func (r *EvidenceRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.EvidenceRequest, int64, error) {
	var items []entity.EvidenceRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.EvidenceRequest{})
	if auditID, ok := filters["audit_id"].(string); ok && auditID != "" {
		query = query.Where("audit_id = ?", auditID)
	}
	if findingID, ok := filters["finding_id"].(string); ok && findingID != "" {
		query = query.Where("finding_id = ?", findingID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// Transition 条件流转：仅当当前状态属于 from 时更新，返回受影响行数
func (r *EvidenceRepository) Transition(ctx context.Context, id string, from []entity.EvidenceStatus, to entity.EvidenceStatus, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&entity.EvidenceRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// CreateItem 记录一次证据提交
func (r *EvidenceRepository) CreateItem(ctx context.Context, item *entity.EvidenceItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindItemByID 查询证据提交记录
func (r *EvidenceRepository) FindItemByID(ctx context.Context, id string) (*entity.EvidenceItem, error) {
	var item entity.EvidenceItem
	err := r.db.WithContext(ctx).
		Preload("Review").
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &item, nil
}
