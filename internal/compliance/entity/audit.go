package entity

import "time"

// AuditType 审核类型
type AuditType string

const (
	AuditTypeInternal AuditType = "INTERNAL"
	AuditTypeExternal AuditType = "EXTERNAL"
)

// AuditStatus 审核状态，只能单向推进
type AuditStatus string

const (
	AuditStatusDraft      AuditStatus = "DRAFT"
	AuditStatusInProgress AuditStatus = "IN_PROGRESS"
	AuditStatusInReview   AuditStatus = "IN_REVIEW"
	AuditStatusClosed     AuditStatus = "CLOSED"
)

// Audit 合规审核
type Audit struct {
	ID         string      `json:"id" gorm:"primaryKey;size:36"`
	TemplateID string      `json:"template_id" gorm:"size:36;not null;index"`
	Title      string      `json:"title" gorm:"size:200;not null"`
	Type       AuditType   `json:"type" gorm:"size:20;not null"`
	Status     AuditStatus `json:"status" gorm:"size:20;not null;default:DRAFT;index"`

	// 审核范围
	ScopeStart  time.Time `json:"scope_start" gorm:"type:date;not null"`
	ScopeEnd    time.Time `json:"scope_end" gorm:"type:date;not null"`
	ScopeLocked bool      `json:"scope_locked" gorm:"default:false"`

	CloseReason *string    `json:"close_reason" gorm:"type:text"`
	ClosedBy    *string    `json:"closed_by" gorm:"size:36"`
	ClosedAt    *time.Time `json:"closed_at"`

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Audit) TableName() string {
	return "audits"
}

// TemplateIndicator 审核模板指标（只读参考数据）
type TemplateIndicator struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	TemplateID string    `json:"template_id" gorm:"size:36;not null;uniqueIndex:uk_template_indicator_code"`
	Code       string    `json:"code" gorm:"size:50;not null;uniqueIndex:uk_template_indicator_code"`
	Text       string    `json:"text" gorm:"type:text;not null"`
	Guidance   string    `json:"guidance" gorm:"type:text"`
	SortOrder  int       `json:"sort_order" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at"`
}

func (TemplateIndicator) TableName() string {
	return "template_indicators"
}

// Rating 指标评级
type Rating string

const (
	RatingConformance Rating = "CONFORMANCE"
	RatingObservation Rating = "OBSERVATION"
	RatingMinorNC     Rating = "MINOR_NC"
	RatingMajorNC     Rating = "MAJOR_NC"
)

// Valid 是否为合法评级
func (r Rating) Valid() bool {
	switch r {
	case RatingConformance, RatingObservation, RatingMinorNC, RatingMajorNC:
		return true
	}
	return false
}

// IndicatorResponse 指标应答，(audit_id, indicator_id) 唯一
type IndicatorResponse struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	AuditID       string    `json:"audit_id" gorm:"size:36;not null;uniqueIndex:uk_audit_indicator"`
	IndicatorID   string    `json:"indicator_id" gorm:"size:36;not null;uniqueIndex:uk_audit_indicator"`
	Rating        Rating    `json:"rating" gorm:"size:20;not null"`
	Comment       *string   `json:"comment" gorm:"type:text"`
	RespondedBy   string    `json:"responded_by" gorm:"size:36"`
	AddedInReview bool      `json:"added_in_review" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (IndicatorResponse) TableName() string {
	return "indicator_responses"
}
