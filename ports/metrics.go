package ports

// AuthMetrics records authentication outcomes
type AuthMetrics interface {
	RecordNonceIssued()
	RecordVerify(outcome string)
	RecordSessionRejected(reason string)
}

// NopAuthMetrics discards everything
type NopAuthMetrics struct{}

func (NopAuthMetrics) RecordNonceIssued()           {}
func (NopAuthMetrics) RecordVerify(string)          {}
func (NopAuthMetrics) RecordSessionRejected(string) {}
