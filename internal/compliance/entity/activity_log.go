package entity

import "time"

// 操作日志实体类型
const (
	LogEntityAudit           = "audit"
	LogEntityFinding         = "finding"
	LogEntityEvidenceRequest = "evidence_request"
	LogEntityDocumentReview  = "document_review"
	LogEntityComplianceRun   = "compliance_run"
	LogEntityAction          = "compliance_action"
)

// ActivityLog 状态流转日志，与流转在同一事务内写入
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_activity_entity"`
	EntityID   string `json:"entity_id" gorm:"size:36;not null;index:idx_activity_entity"`

	Action     string `json:"action" gorm:"size:50;not null"`
	FromStatus string `json:"from_status" gorm:"size:20"`
	ToStatus   string `json:"to_status" gorm:"size:20"`

	Content  string `json:"content" gorm:"type:text"`
	Metadata JSONB  `json:"metadata" gorm:"type:jsonb"`

	OperatorID string    `json:"operator_id" gorm:"size:36"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "compliance_activity_logs"
}

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Audit{},
		&TemplateIndicator{},
		&IndicatorResponse{},
		&Finding{},
		&EvidenceRequest{},
		&EvidenceItem{},
		&DocumentChecklistItem{},
		&DocumentReview{},
		&ComplianceTemplate{},
		&ComplianceTemplateItem{},
		&ComplianceRun{},
		&ComplianceResponse{},
		&ComplianceAction{},
		&ActivityLog{},
	}
}
