package repository

import (
	"context"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResponseRepository 指标应答仓库
type ResponseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// FindByAuditIndicator 查询审核中某指标的应答
func (r *ResponseRepository) FindByAuditIndicator(ctx context.Context, auditID, indicatorID string) (*entity.IndicatorResponse, error) {
	var resp entity.IndicatorResponse
	err := r.db.WithContext(ctx).
		Where("audit_id = ? AND indicator_id = ?", auditID, indicatorID).
		First(&resp).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &resp, nil
}

// ListByAudit 审核全部应答
func (r *ResponseRepository) ListByAudit(ctx context.Context, auditID string) ([]entity.IndicatorResponse, error) {
	var items []entity.IndicatorResponse
	err := r.db.WithContext(ctx).
		Where("audit_id = ?", auditID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// Upsert 按 (audit_id, indicator_id) 写入应答，返回落库后的记录
func (r *ResponseRepository) Upsert(ctx context.Context, resp *entity.IndicatorResponse) (*entity.IndicatorResponse, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "audit_id"}, {Name: "indicator_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "responded_by", "updated_at"}),
	}).Create(resp).Error
	if err != nil {
		return nil, err
	}
	return r.FindByAuditIndicator(ctx, resp.AuditID, resp.IndicatorID)
}

// Insert 仅插入；已存在时返回 ErrDuplicate
func (r *ResponseRepository) Insert(ctx context.Context, resp *entity.IndicatorResponse) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(resp)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}
