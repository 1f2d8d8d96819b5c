package track

// Metrics holds aggregate engine diagnostics since construction; the
// counters survive a Reset. Rejection counters are routine-filtering
// tallies, not error counts.
type Metrics struct {
	Accepted            int64 `json:"accepted"`
	RejectedAccuracy    int64 `json:"rejected_accuracy"`
	RejectedSpeed       int64 `json:"rejected_implied_speed"`
	RejectedConsistency int64 `json:"rejected_consistency"`
	RejectedConfidence  int64 `json:"rejected_confidence"`
	Throttled           int64 `json:"throttled"`

	LockTransitions int64 `json:"lock_transitions"`
	LockReleases    int64 `json:"lock_releases"`
	LockExpiries    int64 `json:"lock_expiries"`

	SourceErrors int64 `json:"source_errors"`
}

// Rejected returns the total count of readings dropped by validation or the
// confidence floor. Throttled readings are not included; they were dropped
// before validation ran.
func (m Metrics) Rejected() int64 {
	return m.RejectedAccuracy + m.RejectedSpeed + m.RejectedConsistency + m.RejectedConfidence
}

// RejectionRate returns rejected / (accepted + rejected), or 0 before any
// reading was processed.
func (m Metrics) RejectionRate() float64 {
	total := m.Accepted + m.Rejected()
	if total == 0 {
		return 0
	}
	return float64(m.Rejected()) / float64(total)
}

func (m *Metrics) countRejection(reason RejectReason) {
	switch reason {
	case RejectAccuracy:
		m.RejectedAccuracy++
	case RejectSpeed:
		m.RejectedSpeed++
	case RejectConsistency:
		m.RejectedConsistency++
	case RejectConfidence:
		m.RejectedConfidence++
	case RejectThrottled:
		m.Throttled++
	}
}
