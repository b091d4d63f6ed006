// Package provider holds pieces shared by the external provider adapters.
package provider

import "time"

// Recorder receives per-call metrics from the caching provider services.
// middleware.ProviderMetrics satisfies it.
type Recorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordRequest(string, string, time.Duration, error) {}
func (NopRecorder) RecordCacheHit(string, string)                      {}
func (NopRecorder) RecordCacheMiss(string, string)                     {}

// OrNop returns r, or a NopRecorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}
