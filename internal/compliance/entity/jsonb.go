package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB jsonb列，用于操作日志元数据
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("failed to scan JSONB: %w", err)
	}
	return json.Unmarshal(bytes, j)
}

// ChecklistAnswers 文档检查项应答 item_id -> YES/NO/PARTLY/NA
type ChecklistAnswers map[string]ChecklistAnswer

func (a ChecklistAnswers) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *ChecklistAnswers) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("failed to scan ChecklistAnswers: %w", err)
	}
	return json.Unmarshal(bytes, a)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
