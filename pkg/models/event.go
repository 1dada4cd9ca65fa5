package models

import (
	"strconv"
	"time"
)

// Column names shared by the CSV loader, filters and exports.
const (
	FieldTimestamp   = "timestamp"
	FieldEvent       = "event"
	FieldCountry     = "country"
	FieldDevice      = "device"
	FieldPackage     = "package"
	FieldAppVersion  = "app_version"
	FieldBuildNumber = "build_number"
	FieldEnvironment = "environment"
	FieldSessionID   = "session_id"
	FieldRiskScore   = "risk_score"
	FieldRiskLevel   = "risk_level"
)

// Known telemetry event types.
const (
	EventRootDetected     = "root_detected"
	EventHookingAttempt   = "hooking_attempt"
	EventEmulatorDetected = "emulator_detected"
	EventDebuggerAttached = "debugger_attached"
)

// Event is one row of mobile-app security telemetry.
type Event struct {
	Row         int       `json:"-"`
	Timestamp   time.Time `json:"timestamp"`
	Event       string    `json:"event"`
	Country     string    `json:"country"`
	Device      string    `json:"device"`
	Package     string    `json:"package,omitempty"`
	AppVersion  string    `json:"app_version,omitempty"`
	BuildNumber string    `json:"build_number,omitempty"`
	Environment string    `json:"environment,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
}

// Field returns a field value by column name.
func (e *Event) Field(name string) string {
	if e == nil {
		return ""
	}
	switch name {
	case FieldEvent:
		return e.Event
	case FieldCountry:
		return e.Country
	case FieldDevice:
		return e.Device
	case FieldPackage:
		return e.Package
	case FieldAppVersion:
		return e.AppVersion
	case FieldBuildNumber:
		return e.BuildNumber
	case FieldEnvironment:
		return e.Environment
	case FieldSessionID:
		return e.SessionID
	}
	return ""
}

// Date returns the calendar date of the event as stored (no zone conversion).
func (e *Event) Date() string {
	return e.Timestamp.Format("2006-01-02")
}

// ScoredEvent is an Event annotated with its risk score and level.
type ScoredEvent struct {
	Event
	RiskScore int       `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	Tags      []string  `json:"tags,omitempty"`
}

// Field extends Event.Field with the derived columns.
func (s *ScoredEvent) Field(name string) string {
	if s == nil {
		return ""
	}
	switch name {
	case FieldRiskLevel:
		return string(s.RiskLevel)
	case FieldRiskScore:
		return strconv.Itoa(s.RiskScore)
	}
	return s.Event.Field(name)
}
