package reference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StatusType classifies a raw airline status string.
type StatusType string

const (
	StatusDeparted  StatusType = "departed"
	StatusArrived   StatusType = "arrived"
	StatusAtGate    StatusType = "at_gate"
	StatusCancelled StatusType = "cancelled"
	StatusDelayed   StatusType = "delayed"
	StatusUnknown   StatusType = "unknown"
)

// ParsedStatus is the structured form of a free-text status field.
// ActualTime is the "HH:MM" substring verbatim; ActualDate is
// "YYYY-MM-DD" when the source included a date suffix.
type ParsedStatus struct {
	Type       StatusType `json:"type"`
	ActualTime string     `json:"actual_time,omitempty"`
	ActualDate string     `json:"actual_date,omitempty"`
}

// Matches "Dep 00:13", "Arr 14:30 (31/12/2025)", "At gate 00:00".
var statusRe = regexp.MustCompile(`^(?i)(Dep|Arr|At gate)\s+(\d{1,2}:\d{2})(?:\s+\((\d{1,2})/(\d{1,2})/(\d{4})\))?\s*$`)

var statusKeywords = map[string]StatusType{
	"dep":     StatusDeparted,
	"arr":     StatusArrived,
	"at gate": StatusAtGate,
}

// ParseStatus extracts structured arrival/departure semantics from a raw
// status string. Unrecognized text (e.g. "Boarding") classifies as
// unknown; this function never fails, since status wording varies freely
// across sources.
func ParseStatus(raw string) ParsedStatus {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedStatus{Type: StatusUnknown}
	}

	switch strings.ToLower(s) {
	case "cancelled":
		return ParsedStatus{Type: StatusCancelled}
	case "delayed":
		return ParsedStatus{Type: StatusDelayed}
	}

	m := statusRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedStatus{Type: StatusUnknown}
	}

	typ, ok := statusKeywords[strings.ToLower(m[1])]
	if !ok {
		return ParsedStatus{Type: StatusUnknown}
	}

	parsed := ParsedStatus{Type: typ, ActualTime: m[2]}
	if m[3] != "" && m[4] != "" && m[5] != "" {
		day, _ := strconv.Atoi(m[3])
		month, _ := strconv.Atoi(m[4])
		year, _ := strconv.Atoi(m[5])
		parsed.ActualDate = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	return parsed
}
