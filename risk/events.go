package risk

import "time"

// Severity grades a risk event.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "LOW"
	}
}

// ParseSeverity is the inverse of String. Unknown names are LOW.
func ParseSeverity(s string) Severity {
	for _, sev := range []Severity{SeverityMedium, SeverityHigh, SeverityCritical} {
		if sev.String() == s {
			return sev
		}
	}
	return SeverityLow
}

// MarshalText lets Severity serialise by name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}

// Risk event types.
const (
	EventPositionApproved   = "POSITION_APPROVED"
	EventPositionRejected   = "POSITION_REJECTED"
	EventStopLoss           = "STOP_LOSS"
	EventBreakerActivated   = "CIRCUIT_BREAKER_ACTIVATED"
	EventBreakerDeactivated = "CIRCUIT_BREAKER_DEACTIVATED"
	EventDailyReset         = "DAILY_RESET"
	EventDrawdownReset      = "DRAWDOWN_RESET"
)

// RiskEvent is an immutable audit record of a risk state change.
type RiskEvent struct {
	Time     time.Time      `json:"time"`
	Type     string         `json:"type"`
	Severity Severity       `json:"severity"`
	Ticker   string         `json:"ticker,omitempty"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// RiskEventSink receives every risk event, e.g. a journal.
type RiskEventSink interface {
	RecordRiskEvent(ev RiskEvent) error
}
