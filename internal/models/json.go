package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON is a jsonb-backed map used for raw provider payloads and metadata
type JSON map[string]interface{}

// Value implements driver.Valuer for jsonb columns
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for jsonb columns
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("unsupported type for JSON scan")
	}
}

// StringList is a jsonb-backed ordered list of strings (e.g. caller numbers)
type StringList []string

// Value implements driver.Valuer for jsonb columns
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(s))
}

// Scan implements sql.Scanner for jsonb columns
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringList scan")
	}
}
