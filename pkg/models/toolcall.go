package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
)

// ToolCall is one tool invocation made while handling a prompt.
// FilePath is set for file-targeting tools (Write, Edit, ...).
type ToolCall struct {
	Tool     string `json:"tool"`
	FilePath string `json:"file_path,omitempty"`
}

// ToolCallList is stored as a JSON text column.
type ToolCallList []ToolCall

// Value implements driver.Valuer.
func (l ToolCallList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *ToolCallList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("tool_calls: unsupported type %T", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// FilePaths returns the file targets of the calls, in order, empty targets skipped.
func (l ToolCallList) FilePaths() []string {
	var paths []string
	for _, c := range l {
		if c.FilePath != "" {
			paths = append(paths, c.FilePath)
		}
	}
	return paths
}
