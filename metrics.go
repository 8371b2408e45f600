package byok

import "strings"

// ErrorCategory is the coarse taxonomy applied to (already redacted) error
// text from credential operations.
type ErrorCategory string

const (
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorAuthorization  ErrorCategory = "authorization"
	ErrorRateLimit      ErrorCategory = "rate_limit"
	ErrorNetwork        ErrorCategory = "network"
	ErrorUnknown        ErrorCategory = "unknown"
)

// Summary is a point-in-time snapshot of the recorder's aggregate counters.
// Total, Success, Failure and the BySource/ByProvider breakdowns count usage
// operations; Resolutions counts precedence outcomes by source.
type Summary struct {
	Total       int64                   `json:"total"`
	Success     int64                   `json:"success"`
	Failure     int64                   `json:"failure"`
	BySource    map[Source]int64        `json:"by_source"`
	ByProvider  map[Provider]int64      `json:"by_provider"`
	Resolutions map[Source]int64        `json:"resolutions"`
	Errors      map[ErrorCategory]int64 `json:"errors"`
}

type metricsState struct {
	total       int64
	success     int64
	failure     int64
	bySource    map[Source]int64
	byProvider  map[Provider]int64
	resolutions map[Source]int64
	errors      map[ErrorCategory]int64
}

func newMetricsState() metricsState {
	return metricsState{
		bySource:    make(map[Source]int64),
		byProvider:  make(map[Provider]int64),
		resolutions: make(map[Source]int64),
		errors:      make(map[ErrorCategory]int64),
	}
}

func (m *metricsState) recordUsage(source Source, provider Provider, success bool, errText string) {
	m.total++
	m.bySource[source]++
	m.byProvider[provider]++
	if success {
		m.success++
		return
	}
	m.failure++
	m.errors[ClassifyError(errText)]++
}

func (m *metricsState) recordResolution(source Source) {
	m.resolutions[source]++
}

func (m *metricsState) summary() Summary {
	s := Summary{
		Total:       m.total,
		Success:     m.success,
		Failure:     m.failure,
		BySource:    make(map[Source]int64, len(m.bySource)),
		ByProvider:  make(map[Provider]int64, len(m.byProvider)),
		Resolutions: make(map[Source]int64, len(m.resolutions)),
		Errors:      make(map[ErrorCategory]int64, len(m.errors)),
	}
	for k, v := range m.bySource {
		s.BySource[k] = v
	}
	for k, v := range m.byProvider {
		s.ByProvider[k] = v
	}
	for k, v := range m.resolutions {
		s.Resolutions[k] = v
	}
	for k, v := range m.errors {
		s.Errors[k] = v
	}
	return s
}

// ClassifyError buckets redacted error text into the error taxonomy using
// status-code and keyword heuristics.
func ClassifyError(errText string) ErrorCategory {
	t := strings.ToLower(errText)
	switch {
	case t == "":
		return ErrorUnknown
	case strings.Contains(t, "401") || strings.Contains(t, "invalid api key") ||
		strings.Contains(t, "invalid key") || strings.Contains(t, "unauthorized") ||
		strings.Contains(t, "authentication"):
		return ErrorAuthentication
	case strings.Contains(t, "403") || strings.Contains(t, "forbidden") ||
		strings.Contains(t, "permission"):
		return ErrorAuthorization
	case strings.Contains(t, "429") || strings.Contains(t, "rate limit") ||
		strings.Contains(t, "quota"):
		return ErrorRateLimit
	case strings.Contains(t, "timeout") || strings.Contains(t, "connection") ||
		strings.Contains(t, "network") || strings.Contains(t, "dns") ||
		strings.Contains(t, "unreachable"):
		return ErrorNetwork
	default:
		return ErrorUnknown
	}
}
