package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB represents an opaque PostgreSQL JSONB field.
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}

	return json.Unmarshal(bytes, j)
}

// StringSlice is a JSONB-backed []string, used for small arrays such as
// daysOfWeek.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
	return json.Unmarshal(bytes, s)
}

// IntSlice is a JSONB-backed []int, used for daysOfWeek {0=Sun..6=Sat}.
type IntSlice []int

func (s IntSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *IntSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into IntSlice", value)
	}
	return json.Unmarshal(bytes, s)
}

// jsonValue/jsonScan are small helpers so each JSONB-backed struct doesn't
// repeat the same marshal/unmarshal boilerplate.
func jsonValue(v interface{}) (driver.Value, error) {
	return json.Marshal(v)
}

func jsonScan(value interface{}, dst interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into %T", value, dst)
	}
	return json.Unmarshal(bytes, dst)
}

// Provider identifies one of the three supported voice-calling vendors.
type Provider string

const (
	ProviderA Provider = "provider_a"
	ProviderB Provider = "provider_b"
	ProviderC Provider = "provider_c"
)

// KeySource tags where a resolved API key came from (§4.1).
type KeySource string

const (
	KeySourceSubTenant KeySource = "subtenant"
	KeySourceTenant    KeySource = "tenant"
)

// CallingWindow is the time-of-day + day-of-week policy a tenant applies to
// outbound dialing, evaluated in the lead's local zone (§4.2).
type CallingWindow struct {
	Enabled    bool     `json:"enabled"`
	StartHour  int      `json:"start_hour"`
	EndHour    int      `json:"end_hour"`
	DaysOfWeek IntSlice `json:"days_of_week"` // 0=Sun..6=Sat
}

func (w CallingWindow) Value() (driver.Value, error) {
	return json.Marshal(w)
}

func (w *CallingWindow) Scan(value interface{}) error {
	if value == nil {
		*w = CallingWindow{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into CallingWindow", value)
	}
	return json.Unmarshal(bytes, w)
}
