package repository

import (
	"context"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChecklistRepository 文档检查项仓库
type ChecklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// ListByDocumentType 某文档类型的检查项
func (r *ChecklistRepository) ListByDocumentType(ctx context.Context, documentType string) ([]entity.DocumentChecklistItem, error) {
	var items []entity.DocumentChecklistItem
	err := r.db.WithContext(ctx).
		Where("document_type = ?", documentType).
		Order("sort_order ASC, code ASC").
		Find(&items).Error
	return items, err
}

// ListDocumentTypes 已配置检查项的文档类型
func (r *ChecklistRepository) ListDocumentTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).
		Model(&entity.DocumentChecklistItem{}).
		Distinct("document_type").
		Order("document_type ASC").
		Pluck("document_type", &types).Error
	return types, err
}

// Upsert 按 (document_type, code) 导入检查项
func (r *ChecklistRepository) Upsert(ctx context.Context, item *entity.DocumentChecklistItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_type"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"section", "is_critical", "text", "sort_order"}),
	}).Create(item).Error
}

// DocumentReviewRepository 文档审核仓库
type DocumentReviewRepository struct {
	db *gorm.DB
}

func NewDocumentReviewRepository(db *gorm.DB) *DocumentReviewRepository {
	return &DocumentReviewRepository{db: db}
}

// Create 写入文档审核；同一证据项已有审核时返回 ErrDuplicate
func (r *DocumentReviewRepository) Create(ctx context.Context, review *entity.DocumentReview) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "evidence_item_id"}}, DoNothing: true}).
		Create(review)
	if result.Error != nil {
		return wrapDuplicate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// FindByEvidenceItem 查询证据项的文档审核
func (r *DocumentReviewRepository) FindByEvidenceItem(ctx context.Context, itemID string) (*entity.DocumentReview, error) {
	var review entity.DocumentReview
	if err := r.db.WithContext(ctx).Where("evidence_item_id = ?", itemID).First(&review).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &review, nil
}
