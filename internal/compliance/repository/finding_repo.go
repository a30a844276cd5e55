package repository

import (
	"context"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
)

// FindingRepository 不符合项仓库
type FindingRepository struct {
	db *gorm.DB
}

func NewFindingRepository(db *gorm.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

// Create 创建不符合项
func (r *FindingRepository) Create(ctx context.Context, f *entity.Finding) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// FindByID 根据ID查询
func (r *FindingRepository) FindByID(ctx context.Context, id string) (*entity.Finding, error) {
	var f entity.Finding
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &f, nil
}

// List 不符合项列表
func (r *FindingRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Finding, int64, error) {
	var items []entity.Finding
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Finding{})
	if auditID, ok := filters["audit_id"].(string); ok && auditID != "" {
		query = query.Where("audit_id = ?", auditID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if severity, ok := filters["severity"].(string); ok && severity != "" {
		query = query.Where("severity = ?", severity)
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

// ListOpenByIndicator 审核中某指标尚未关闭的不符合项
func (r *FindingRepository) ListOpenByIndicator(ctx context.Context, auditID, indicatorID string) ([]entity.Finding, error) {
	var items []entity.Finding
	err := r.db.WithContext(ctx).
		Where("audit_id = ? AND indicator_id = ? AND status <> ?", auditID, indicatorID, entity.FindingStatusClosed).
		Find(&items).Error
	return items, err
}

// CountOpenMajor 审核中仍为 OPEN 的严重不符合项数量
func (r *FindingRepository) CountOpenMajor(ctx context.Context, auditID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.Finding{}).
		Where("audit_id = ? AND severity = ? AND status = ?", auditID, entity.FindingSeverityMajorNC, entity.FindingStatusOpen).
		Count(&n).Error
	return n, err
}

// Close 关闭不符合项；已关闭的不受影响
func (r *FindingRepository) Close(ctx context.Context, id, reason string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.Finding{}).
		Where("id = ? AND status <> ?", id, entity.FindingStatusClosed).
		Updates(map[string]interface{}{
			"status":        entity.FindingStatusClosed,
			"closed_reason": reason,
			"closed_at":     now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// TransitionStatus 条件更新状态
func (r *FindingRepository) TransitionStatus(ctx context.Context, id string, from, to entity.FindingStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Finding{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// LinkEvidenceRequest 关联证据请求
func (r *FindingRepository) LinkEvidenceRequest(ctx context.Context, id, requestID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Finding{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"evidence_request_id": requestID,
			"updated_at":          time.Now(),
		}).Error
}
