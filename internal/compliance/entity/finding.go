package entity

import "time"

// FindingSeverity 不符合项严重程度，与触发评级一一对应
type FindingSeverity string

const (
	FindingSeverityMinorNC FindingSeverity = "MINOR_NC"
	FindingSeverityMajorNC FindingSeverity = "MAJOR_NC"
)

// FindingStatus 不符合项状态
type FindingStatus string

const (
	FindingStatusOpen        FindingStatus = "OPEN"
	FindingStatusUnderReview FindingStatus = "UNDER_REVIEW"
	FindingStatusClosed      FindingStatus = "CLOSED"
)

// 关闭原因
const (
	FindingClosedEvidenceAccepted = "evidence_accepted"
	FindingClosedSuperseded       = "superseded"
)

// Finding 不符合项
type Finding struct {
	ID                string          `json:"id" gorm:"primaryKey;size:36"`
	AuditID           *string         `json:"audit_id" gorm:"size:36;index"`
	IndicatorID       *string         `json:"indicator_id" gorm:"size:36;index"`
	ResponseID        *string         `json:"response_id" gorm:"size:36"`
	Severity          FindingSeverity `json:"severity" gorm:"size:20;not null"`
	Status            FindingStatus   `json:"status" gorm:"size:20;not null;default:OPEN;index"`
	FindingText       string          `json:"finding_text" gorm:"type:text"`
	EvidenceRequestID *string         `json:"evidence_request_id" gorm:"size:36"`

	ClosedReason string     `json:"closed_reason" gorm:"size:50"`
	ClosedAt     *time.Time `json:"closed_at"`

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Finding) TableName() string {
	return "findings"
}

// SeverityForRating 评级对应的严重程度；CONFORMANCE/OBSERVATION 不产生不符合项
func SeverityForRating(r Rating) (FindingSeverity, bool) {
	switch r {
	case RatingMinorNC:
		return FindingSeverityMinorNC, true
	case RatingMajorNC:
		return FindingSeverityMajorNC, true
	}
	return "", false
}
