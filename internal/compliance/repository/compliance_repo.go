package repository

import (
	"context"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComplianceTemplateRepository 周期检查模板仓库
type ComplianceTemplateRepository struct {
	db *gorm.DB
}

func NewComplianceTemplateRepository(db *gorm.DB) *ComplianceTemplateRepository {
	return &ComplianceTemplateRepository{db: db}
}

// Create 创建模板
func (r *ComplianceTemplateRepository) Create(ctx context.Context, t *entity.ComplianceTemplate) error {
	return r.db.WithContext(ctx).Omit("Items").Create(t).Error
}

// FindByID 查询模板及检查项
func (r *ComplianceTemplateRepository) FindByID(ctx context.Context, id string) (*entity.ComplianceTemplate, error) {
	var t entity.ComplianceTemplate
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, code ASC")
		}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

// FindByName 按名称查询模板
func (r *ComplianceTemplateRepository) FindByName(ctx context.Context, name string) (*entity.ComplianceTemplate, error) {
	var t entity.ComplianceTemplate
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&t).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

// List 模板列表
func (r *ComplianceTemplateRepository) List(ctx context.Context) ([]entity.ComplianceTemplate, error) {
	var items []entity.ComplianceTemplate
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

// FindItemByID 查询检查项
func (r *ComplianceTemplateRepository) FindItemByID(ctx context.Context, id string) (*entity.ComplianceTemplateItem, error) {
	var item entity.ComplianceTemplateItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &item, nil
}

// UpsertItem 按 (template_id, code) 导入检查项
func (r *ComplianceTemplateRepository) UpsertItem(ctx context.Context, item *entity.ComplianceTemplateItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "response_type", "is_critical", "min_value", "max_value", "sort_order"}),
	}).Create(item).Error
}

// ComplianceRunRepository 周期检查仓库
type ComplianceRunRepository struct {
	db *gorm.DB
}

func NewComplianceRunRepository(db *gorm.DB) *ComplianceRunRepository {
	return &ComplianceRunRepository{db: db}
}

// InsertIfAbsent 周期唯一键冲突时不插入；返回是否新建
func (r *ComplianceRunRepository) InsertIfAbsent(ctx context.Context, run *entity.ComplianceRun) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit("Responses").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope_type"}, {Name: "scope_entity_id"}, {Name: "frequency"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(run)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindByPeriod 按周期唯一键查询
func (r *ComplianceRunRepository) FindByPeriod(ctx context.Context, scopeType entity.ScopeType, scopeEntityID string, freq entity.Frequency, periodStart time.Time) (*entity.ComplianceRun, error) {
	var run entity.ComplianceRun
	err := r.db.WithContext(ctx).
		Where("scope_type = ? AND scope_entity_id = ? AND frequency = ? AND period_start = ?",
			scopeType, scopeEntityID, freq, periodStart).
		First(&run).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &run, nil
}

// FindByID 查询检查及应答
func (r *ComplianceRunRepository) FindByID(ctx context.Context, id string) (*entity.ComplianceRun, error) {
	var run entity.ComplianceRun
	err := r.db.WithContext(ctx).
		Preload("Responses").
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &run, nil
}

// FindForUpdate 事务内加行锁查询，作答与提交、锁定互斥
func (r *ComplianceRunRepository) FindForUpdate(ctx context.Context, id string) (*entity.ComplianceRun, error) {
	var run entity.ComplianceRun
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &run, nil
}

// List 检查列表
func (r *ComplianceRunRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.ComplianceRun, int64, error) {
	var items []entity.ComplianceRun
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ComplianceRun{})
	if scopeType, ok := filters["scope_type"].(string); ok && scopeType != "" {
		query = query.Where("scope_type = ?", scopeType)
	}
	if entityID, ok := filters["scope_entity_id"].(string); ok && entityID != "" {
		query = query.Where("scope_entity_id = ?", entityID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if color, ok := filters["status_color"].(string); ok && color != "" {
		query = query.Where("status_color = ?", color)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("period_start DESC, created_at DESC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// Transition 条件流转，返回受影响行数
func (r *ComplianceRunRepository) Transition(ctx context.Context, id string, from []entity.RunStatus, to entity.RunStatus, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&entity.ComplianceRun{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// ComplianceResponseRepository 周期检查应答仓库
type ComplianceResponseRepository struct {
	db *gorm.DB
}

func NewComplianceResponseRepository(db *gorm.DB) *ComplianceResponseRepository {
	return &ComplianceResponseRepository{db: db}
}

// Upsert 按 (run_id, item_id) 写入，最新值覆盖
func (r *ComplianceResponseRepository) Upsert(ctx context.Context, resp *entity.ComplianceResponse) (*entity.ComplianceResponse, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "note", "responded_by", "updated_at"}),
	}).Create(resp).Error
	if err != nil {
		return nil, err
	}

	var saved entity.ComplianceResponse
	err = r.db.WithContext(ctx).
		Where("run_id = ? AND item_id = ?", resp.RunID, resp.ItemID).
		First(&saved).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &saved, nil
}

// ListByRun 检查全部应答
func (r *ComplianceResponseRepository) ListByRun(ctx context.Context, runID string) ([]entity.ComplianceResponse, error) {
	var items []entity.ComplianceResponse
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).Find(&items).Error
	return items, err
}

// ComplianceActionRepository 整改行动仓库
type ComplianceActionRepository struct {
	db *gorm.DB
}

func NewComplianceActionRepository(db *gorm.DB) *ComplianceActionRepository {
	return &ComplianceActionRepository{db: db}
}

// CreateBatch 批量创建整改行动
func (r *ComplianceActionRepository) CreateBatch(ctx context.Context, actions []entity.ComplianceAction) error {
	if len(actions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&actions).Error
}

// FindByID 查询整改行动
func (r *ComplianceActionRepository) FindByID(ctx context.Context, id string) (*entity.ComplianceAction, error) {
	var a entity.ComplianceAction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &a, nil
}

// ListByRun 检查生成的整改行动
func (r *ComplianceActionRepository) ListByRun(ctx context.Context, runID string) ([]entity.ComplianceAction, error) {
	var items []entity.ComplianceAction
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// List 整改行动列表
func (r *ComplianceActionRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.ComplianceAction, int64, error) {
	var items []entity.ComplianceAction
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ComplianceAction{})
	if runID, ok := filters["run_id"].(string); ok && runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if overdue, ok := filters["overdue"].(bool); ok && overdue {
		query = query.Where("status <> ? AND due_at < ?", entity.ActionStatusClosed, time.Now())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("due_at ASC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// Transition 条件流转
func (r *ComplianceActionRepository) Transition(ctx context.Context, id string, from, to entity.ActionStatus, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&entity.ComplianceAction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}
