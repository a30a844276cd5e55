package repository

import (
	"context"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuditRepository 审核仓库
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create 创建审核
func (r *AuditRepository) Create(ctx context.Context, audit *entity.Audit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// FindByID 根据ID查询审核
func (r *AuditRepository) FindByID(ctx context.Context, id string) (*entity.Audit, error) {
	var audit entity.Audit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&audit).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &audit, nil
}

// FindForUpdate 事务内加行锁查询，串行化同一审核的状态推进
func (r *AuditRepository) FindForUpdate(ctx context.Context, id string) (*entity.Audit, error) {
	var audit entity.Audit
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&audit).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &audit, nil
}

// List 审核列表
func (r *AuditRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Audit, int64, error) {
	var items []entity.Audit
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Audit{})
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if auditType, ok := filters["type"].(string); ok && auditType != "" {
		query = query.Where("type = ?", auditType)
	}
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		query = query.Where("title ILIKE ?", "%"+keyword+"%")
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

// TransitionStatus 条件更新状态，返回受影响行数；0 表示状态已被并发修改
func (r *AuditRepository) TransitionStatus(ctx context.Context, id string, from, to entity.AuditStatus, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&entity.Audit{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// UpdateScope 仅草稿且未锁定的审核可修改范围
func (r *AuditRepository) UpdateScope(ctx context.Context, id string, start, end time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Audit{}).
		Where("id = ? AND status = ? AND scope_locked = ?", id, entity.AuditStatusDraft, false).
		Updates(map[string]interface{}{
			"scope_start": start,
			"scope_end":   end,
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}
