package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/cache"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/metrics"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/policy"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor 当前操作人
type Actor struct {
	UserID string
	Roles  []string
}

// Publisher 状态变更事件出口，提交事务后调用
type Publisher interface {
	Publish(eventType string, payload map[string]string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, map[string]string) {}

// Options 业务可配置项
type Options struct {
	// ActionSLA 关键项失败生成的整改行动期限
	ActionSLA time.Duration
	// UnansweredIsFailure 未作答的检查项是否视为失败
	UnansweredIsFailure bool
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{ActionSLA: 48 * time.Hour, UnansweredIsFailure: true}
}

// base 各服务共用的依赖
type base struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
	events Publisher
}

// inTx 在事务内执行，回调拿到绑定事务的仓库集合
func (b *base) inTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(b.repos.WithTx(tx))
	})
}

func (b *base) publish(eventType string, payload map[string]string) {
	b.events.Publish(eventType, payload)
}

// Services 合规服务集合
type Services struct {
	Audit          *AuditService
	Finding        *FindingService
	Evidence       *EvidenceService
	DocumentReview *DocumentReviewService
	Compliance     *ComplianceService
	Reference      *ReferenceService
	Activity       *ActivityService

	base *base
}

// NewServices 创建合规服务集合
func NewServices(db *gorm.DB, logger *zap.Logger, opts Options) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &base{
		db:     db,
		repos:  repository.NewRepositories(db),
		logger: logger,
		events: nopPublisher{},
	}
	return &Services{
		base:           b,
		Audit:          &AuditService{base: b},
		Finding:        &FindingService{base: b},
		Evidence:       &EvidenceService{base: b, store: &storage.EvidenceStore{}},
		DocumentReview: &DocumentReviewService{base: b},
		Compliance:     &ComplianceService{base: b, opts: opts},
		Reference:      &ReferenceService{base: b},
		Activity:       &ActivityService{base: b},
	}
}

// SetPublisher 注入事件发布器
func (s *Services) SetPublisher(p Publisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.base.events = p
}

// SetScoreCache 注入审核得分缓存
func (s *Services) SetScoreCache(c *cache.ScoreCache) {
	s.Audit.scores = c
}

// SetEvidenceStore 注入证据文件存储
func (s *Services) SetEvidenceStore(store EvidenceStore) {
	if store == nil {
		store = &storage.EvidenceStore{}
	}
	s.Evidence.store = store
}

// authorize 校验角色权限
func authorize(actor Actor, op policy.Operation) error {
	return policy.Authorize(actor.Roles, op)
}

// lookupErr 将仓库层未找到错误转换为业务 NotFound
func lookupErr(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(what, id)
	}
	return fmt.Errorf("查询%s失败: %w", what, err)
}

// raced 条件更新未命中任何行：状态已被并发修改
func raced(what string) error {
	return apperr.Conflict("%s状态已变更，请刷新后重试", what)
}

func recordTransition(entityType string, from, to string) {
	metrics.RecordTransition(entityType, from, to)
}

func strPtr(s string) *string {
	return &s
}

// ActivityService 操作日志查询
type ActivityService struct {
	*base
}

// List 按实体分页查询操作日志
func (s *ActivityService) List(ctx context.Context, actor Actor, entityType, entityID string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, 0, err
	}
	return s.repos.ActivityLog.FindByEntity(ctx, entityType, entityID, page, pageSize)
}
