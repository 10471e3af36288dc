// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package emumanager

import "github.com/prometheus/client_golang/prometheus"

// NewAdvanceDurationHistogram builds the HistogramVec NewManager takes
// for per-Timeline advance wall-clock duration, labeled by
// timeline_id, registered against reg.
func NewAdvanceDurationHistogram(reg prometheus.Registerer) (*prometheus.HistogramVec, error) {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chronoswitch",
		Subsystem: "emumanager",
		Name:      "advance_seconds",
		Help:      "Wall-clock time spent in one advanceLXCsOnTimeline progress commit.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"timeline_id"})
	if reg != nil {
		if err := reg.Register(vec); err != nil {
			return nil, err
		}
	}
	return vec, nil
}

// NewHookFallbackCounter builds the CounterVec HookVTime increments
// every time no socket-hook record is available, so that receive
// vtime falls back to elapsed_now (spec §9 Open Question 1), labeled by the proxy's container
// name, registered against reg.
func NewHookFallbackCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chronoswitch",
		Subsystem: "emumanager",
		Name:      "sockethook_fallback_total",
		Help:      "Times HandleFrame fell back to elapsed_now because the socket-hook record was unavailable.",
	}, []string{"container"})
	if reg != nil {
		if err := reg.Register(vec); err != nil {
			return nil, err
		}
	}
	return vec, nil
}
