package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ColumnPath locates a table column in the nested column-header tree: the
// ordered sequence of zero-based sibling indices from the root to the node.
// The root's first child is [0]; that child's second sub-child is [0,1].
// A valid path is never empty; the root itself never holds cell data.
// Persisted as JSONB.
type ColumnPath []int

// Key renders the path as a stable map key, e.g. "0.1.2".
func (p ColumnPath) Key() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// Less orders paths lexicographically, which equals the in-order walk of the
// reconstructed column tree.
func (p ColumnPath) Less(other ColumnPath) bool {
	n := len(p)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if p[i] != other[i] {
			return p[i] < other[i]
		}
	}
	return len(p) < len(other)
}

// Equal reports whether two paths are identical.
func (p ColumnPath) Equal(other ColumnPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a (non-strict) prefix of p.
func (p ColumnPath) HasPrefix(prefix ColumnPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Value implements driver.Valuer, storing the path as JSON.
func (p ColumnPath) Value() (driver.Value, error) {
	b, err := json.Marshal([]int(p))
	if err != nil {
		return nil, fmt.Errorf("marshaling column path: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner for JSONB columns.
func (p *ColumnPath) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*p = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ColumnPath", src)
	}
	return json.Unmarshal(b, (*[]int)(p))
}
