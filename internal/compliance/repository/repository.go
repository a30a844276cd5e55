package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repositories 合规仓库集合
type Repositories struct {
	Audit              *AuditRepository
	Indicator          *IndicatorRepository
	Response           *ResponseRepository
	Finding            *FindingRepository
	Evidence           *EvidenceRepository
	Checklist          *ChecklistRepository
	DocumentReview     *DocumentReviewRepository
	ComplianceTemplate *ComplianceTemplateRepository
	ComplianceRun      *ComplianceRunRepository
	ComplianceResponse *ComplianceResponseRepository
	ComplianceAction   *ComplianceActionRepository
	ActivityLog        *ActivityLogRepository
}

// NewRepositories 创建合规仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Audit:              NewAuditRepository(db),
		Indicator:          NewIndicatorRepository(db),
		Response:           NewResponseRepository(db),
		Finding:            NewFindingRepository(db),
		Evidence:           NewEvidenceRepository(db),
		Checklist:          NewChecklistRepository(db),
		DocumentReview:     NewDocumentReviewRepository(db),
		ComplianceTemplate: NewComplianceTemplateRepository(db),
		ComplianceRun:      NewComplianceRunRepository(db),
		ComplianceResponse: NewComplianceResponseRepository(db),
		ComplianceAction:   NewComplianceActionRepository(db),
		ActivityLog:        NewActivityLogRepository(db),
	}
}

// WithTx 返回绑定到事务的仓库集合
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func wrapDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
