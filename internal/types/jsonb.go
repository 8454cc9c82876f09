package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions.
// Scan is on pointer receivers; Value is on value receivers.
var (
	_ sql.Scanner   = (*DefinitionData)(nil)
	_ driver.Valuer = DefinitionData{}
	_ sql.Scanner   = (*Recurrence)(nil)
	_ driver.Valuer = Recurrence{}
	_ sql.Scanner   = (*ScanSummary)(nil)
	_ driver.Valuer = ScanSummary{}
)

// scanJSONB scans a JSONB database value into dest. It accepts the []byte and
// string representations different drivers hand back.
func scanJSONB(dest any, value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// Scan reads the inline custom definition column.
func (d *DefinitionData) Scan(value any) error {
	return scanJSONB(d, value)
}

// Value writes the inline custom definition column.
func (d DefinitionData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan reads a recurrence column.
func (r *Recurrence) Scan(value any) error {
	return scanJSONB(r, value)
}

// Value writes a recurrence column.
func (r Recurrence) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan reads the scan_runs.summary column.
func (s *ScanSummary) Scan(value any) error {
	return scanJSONB(s, value)
}

// Value writes the scan_runs.summary column.
func (s ScanSummary) Value() (driver.Value, error) {
	return json.Marshal(s)
}
