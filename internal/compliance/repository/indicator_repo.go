package repository

import (
	"context"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndicatorRepository 审核模板指标仓库
type IndicatorRepository struct {
	db *gorm.DB
}

func NewIndicatorRepository(db *gorm.DB) *IndicatorRepository {
	return &IndicatorRepository{db: db}
}

// FindByID 根据ID查询指标
func (r *IndicatorRepository) FindByID(ctx context.Context, id string) (*entity.TemplateIndicator, error) {
	var ind entity.TemplateIndicator
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ind).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &ind, nil
}

// ListByTemplate 模板下全部指标
func (r *IndicatorRepository) ListByTemplate(ctx context.Context, templateID string) ([]entity.TemplateIndicator, error) {
	var items []entity.TemplateIndicator
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("sort_order ASC, code ASC").
		Find(&items).Error
	return items, err
}

// CountByTemplate 模板指标数量
func (r *IndicatorRepository) CountByTemplate(ctx context.Context, templateID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.TemplateIndicator{}).Where("template_id = ?", templateID).Count(&n).Error
	return n, err
}

// ListUnrated 审核中尚无应答的指标
func (r *IndicatorRepository) ListUnrated(ctx context.Context, templateID, auditID string) ([]entity.TemplateIndicator, error) {
	rated := r.db.Model(&entity.IndicatorResponse{}).Select("indicator_id").Where("audit_id = ?", auditID)

	var items []entity.TemplateIndicator
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND id NOT IN (?)", templateID, rated).
		Order("sort_order ASC, code ASC").
		Find(&items).Error
	return items, err
}

// Upsert 按 (template_id, code) 导入指标
func (r *IndicatorRepository) Upsert(ctx context.Context, ind *entity.TemplateIndicator) error {
	if ind.CreatedAt.IsZero() {
		ind.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "guidance", "sort_order"}),
	}).Create(ind).Error
}
