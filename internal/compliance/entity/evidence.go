package entity

import "time"

// EvidenceStatus 证据请求状态
type EvidenceStatus string

const (
	EvidenceStatusRequested   EvidenceStatus = "REQUESTED"
	EvidenceStatusSubmitted   EvidenceStatus = "SUBMITTED"
	EvidenceStatusUnderReview EvidenceStatus = "UNDER_REVIEW"
	EvidenceStatusAccepted    EvidenceStatus = "ACCEPTED"
	EvidenceStatusRejected    EvidenceStatus = "REJECTED"
)

// EvidenceType 证据类型
type EvidenceType string

const (
	EvidenceTypeDocument EvidenceType = "DOCUMENT"
	EvidenceTypePolicy   EvidenceType = "POLICY"
	EvidenceTypeRecord   EvidenceType = "RECORD"
	EvidenceTypePhoto    EvidenceType = "PHOTO"
	EvidenceTypeOther    EvidenceType = "OTHER"
)

// Valid 是否为合法证据类型
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceTypeDocument, EvidenceTypePolicy, EvidenceTypeRecord, EvidenceTypePhoto, EvidenceTypeOther:
		return true
	}
	return false
}

// EvidenceRequest 证据请求
type EvidenceRequest struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	AuditID      *string        `json:"audit_id" gorm:"size:36;index"`
	FindingID    *string        `json:"finding_id" gorm:"size:36;index"`
	Status       EvidenceStatus `json:"status" gorm:"size:20;not null;default:REQUESTED;index"`
	EvidenceType EvidenceType   `json:"evidence_type" gorm:"size:20;not null"`
	Description  string         `json:"description" gorm:"type:text"`
	DueDate      *time.Time     `json:"due_date" gorm:"type:date"`

	RequestedBy string     `json:"requested_by" gorm:"size:36;not null"`
	ReviewerID  *string    `json:"reviewer_id" gorm:"size:36"`
	ReviewNote  string     `json:"review_note" gorm:"type:text"`
	ReviewedAt  *time.Time `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []EvidenceItem `json:"items,omitempty" gorm:"foreignKey:RequestID"`
}

func (EvidenceRequest) TableName() string {
	return "evidence_requests"
}

// SubmissionKind 提交方式
type SubmissionKind string

const (
	SubmissionKindUpload SubmissionKind = "UPLOAD"
	SubmissionKindLink   SubmissionKind = "LINK"
)

// EvidenceItem 单次证据提交（上传或外链），创建后不可修改
type EvidenceItem struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	RequestID    string         `json:"request_id" gorm:"size:36;not null;index"`
	Kind         SubmissionKind `json:"kind" gorm:"size:10;not null"`
	DocumentName string         `json:"document_name" gorm:"size:255;not null"`
	URL          string         `json:"url" gorm:"size:1000"`
	StorageKey   string         `json:"storage_key" gorm:"size:500"`
	DocumentType string         `json:"document_type" gorm:"size:50"`
	Note         string         `json:"note" gorm:"type:text"`
	UploadedBy   string         `json:"uploaded_by" gorm:"size:36;not null"`
	CreatedAt    time.Time      `json:"created_at"`

	Review *DocumentReview `json:"review,omitempty" gorm:"foreignKey:EvidenceItemID"`
}

func (EvidenceItem) TableName() string {
	return "evidence_items"
}
