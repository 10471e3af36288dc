// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package emumanager

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/grimmlab/chronoswitch/internal/dilation"
	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/logging"
	"github.com/grimmlab/chronoswitch/internal/proxy"
	"github.com/grimmlab/chronoswitch/internal/sockethook"
	"github.com/grimmlab/chronoswitch/internal/timeline"
	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// hookFallbackLogInterval bounds how often HookVTime logs the same
// container's socket-hook fallback at WARN (spec §9 Open Question 1:
// the fallback stays silent-by-default for delivery, but diagnosable).
const hookFallbackLogInterval = time.Minute

// defaultDriftThreshold is the |elapsed - target| bound spec §4.G step
// 4 and property 10 both name: exceeding it forces a fix_timeline
// call. Manager.driftThreshold defaults to this but is overridable via
// SetDriftThreshold (procconfig's AdvanceDriftThreshold).
const defaultDriftThreshold = 1000 * time.Microsecond

// defaultCapturePollTimeout is the per-iteration poll(2) budget spec
// §4.G step 2 names: poll(fds, |proxies|, 3500ms). Overridable via
// SetCapturePollTimeout (procconfig's CapturePollTimeout).
const defaultCapturePollTimeout = 3500 * time.Millisecond

// Manager owns the Proxies grouped by Timeline, the dilation service,
// and the Timeline kernel they arbitrate against. Its own bookkeeping
// (the per-Timeline counters and the stats histogram) is protected by
// one mutex, per spec §5's shared-resource policy — Entity/Proxy state
// itself stays owned by its respective goroutine.
type Manager struct {
	kernel   *timeline.Kernel
	dilation dilation.Service
	deps     proxy.Deps

	mu                 sync.Mutex
	byTimeline         map[string][]*proxy.Proxy
	counters           map[string]*timelineCounters
	advanceDur         *prometheus.HistogramVec
	hooks              sockethook.Service
	hookFallback       *prometheus.CounterVec
	hookLog            *logging.Logger
	hookLogLimit       *logging.RateLimiter
	driftThreshold     time.Duration
	capturePollTimeout time.Duration
}

type timelineCounters struct {
	advances  uint64
	fixups    uint64
	skipped   uint64
}

// NewManager creates a Manager. advanceDur, if non-nil, receives one
// observation per advanceLXCsOnTimeline call that actually advanced
// something, labeled by timeline_id — the DOMAIN STACK's
// prometheus.HistogramVec wiring for capture/advance stats.
func NewManager(kernel *timeline.Kernel, dil dilation.Service, deps proxy.Deps, advanceDur *prometheus.HistogramVec) *Manager {
	return &Manager{
		kernel:             kernel,
		dilation:           dil,
		deps:               deps,
		byTimeline:         make(map[string][]*proxy.Proxy),
		counters:           make(map[string]*timelineCounters),
		advanceDur:         advanceDur,
		driftThreshold:     defaultDriftThreshold,
		capturePollTimeout: defaultCapturePollTimeout,
	}
}

// SetDriftThreshold overrides the |elapsed - target| bound
// AdvanceLXCsOnTimeline forces a fix_timeline call past (procconfig's
// AdvanceDriftThreshold); zero leaves the spec default in place.
func (m *Manager) SetDriftThreshold(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driftThreshold = d
}

// SetCapturePollTimeout overrides the per-iteration poll(2) budget
// RunCaptureLoop uses (procconfig's CapturePollTimeout); zero leaves
// the spec default in place.
func (m *Manager) SetCapturePollTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capturePollTimeout = d
}

// CapturePollTimeoutMillis returns the current capture-loop poll
// budget in milliseconds, for RunCaptureLoop's unix.Poll call.
func (m *Manager) CapturePollTimeoutMillis() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.capturePollTimeout / time.Millisecond)
}

// SetHookService attaches the socket-hook client RunCaptureLoop
// consults before falling back to elapsed_now (spec §4.G step 4). A
// nil Manager.hooks (the default) skips the lookup entirely;
// chronoswitchd leaves it nil when no socket-hook file is configured
// or the file cannot be opened. fallback, if non-nil, is incremented per container every
// time HookVTime has to fall back; log, if non-nil, gets one
// rate-limited WARN line per container per hookFallbackLogInterval
// for the same event (spec §9 Open Question 1's diagnosable-fallback
// decision).
func (m *Manager) SetHookService(svc sockethook.Service, fallback *prometheus.CounterVec, log *logging.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = svc
	m.hookFallback = fallback
	m.hookLog = log
	if log != nil {
		m.hookLogLimit = logging.NewRateLimiter(hookFallbackLogInterval)
	}
}

// HookVTime asks the attached socket-hook service for p's last-send
// timestamp, converted to vtime.Time. It returns nil whenever the hook
// isn't attached, the container hasn't been selected successfully, or
// no record is available yet — any of which means HandleFrame should
// fall back to elapsed_now per spec §4.G step 4's "Preferred ...
// Fallback" language. Every nil return with a hook service attached
// records the fallback via the counter/rate-limited log passed to
// SetHookService; with no hook service attached nothing is recorded.
func (m *Manager) HookVTime(p *proxy.Proxy) *vtime.Time {
	m.mu.Lock()
	hooks := m.hooks
	m.mu.Unlock()
	if hooks == nil {
		return nil
	}

	if err := hooks.Select(p.ContainerName); err != nil {
		m.recordHookFallback(p.ContainerName)
		return nil
	}
	rec, ok, err := hooks.Read()
	if err != nil || !ok {
		m.recordHookFallback(p.ContainerName)
		return nil
	}
	t := vtime.Time(rec.Sec*1_000_000 + rec.Usec)
	return &t
}

func (m *Manager) recordHookFallback(container string) {
	m.mu.Lock()
	fallback, log, limit := m.hookFallback, m.hookLog, m.hookLogLimit
	m.mu.Unlock()

	if fallback != nil {
		fallback.WithLabelValues(container).Inc()
	}
	if log != nil && limit != nil && limit.Allow(container, time.Now()) {
		log.Component("emumanager").Warn("socket-hook record unavailable, falling back to elapsed_now", "container", container)
	}
}

// RegisterProxy adds p to timeline tid's proxy set.
func (m *Manager) RegisterProxy(tid string, p *proxy.Proxy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTimeline[tid] = append(m.byTimeline[tid], p)
	if _, ok := m.counters[tid]; !ok {
		m.counters[tid] = &timelineCounters{}
	}
}

// ResolveDestination finds the Proxy whose IP matches dstIP (spec
// §4.G step 5: "linear scan acceptable; small N").
func (m *Manager) ResolveDestination(dstIP string) (*proxy.Proxy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, proxies := range m.byTimeline {
		for _, p := range proxies {
			if p.IP == dstIP {
				return p, true
			}
		}
	}
	return nil, false
}

// ResolveReceiveVTime implements spec §4.G step 4: prefer the
// socket-hook timestamp when present, otherwise elapsedNow; clamp to
// elapsedNow if the resolved time would be less than
// lastArrivalVTime, preserving Timeline monotonicity for the sequence
// of events this Proxy's traffic generates.
func ResolveReceiveVTime(hookVTime *vtime.Time, elapsedNow, lastArrivalVTime vtime.Time) vtime.Time {
	resolved := elapsedNow
	if hookVTime != nil {
		resolved = *hookVTime
	}
	if resolved < lastArrivalVTime {
		return elapsedNow
	}
	return resolved
}

// HandleFrame implements spec §4.G steps 3–6 for one already-read
// frame from src's tap fd: classify it, resolve the destination Proxy,
// build the EmuPacket, and schedule its delivery on the destination's
// Timeline at receiveVTime + transferDelay. Dropped frame kinds return
// nil; an unresolvable destination drops the frame and returns a
// PacketUnroutable error. HandleFrame logs neither case, and
// RunCaptureLoop discards the returned error and goes on to the next
// frame.
func (m *Manager) HandleFrame(src *proxy.Proxy, raw []byte, elapsedNow vtime.Time, hookVTime *vtime.Time, transferDelay vtime.Duration, writer TapWriter) error {
	frame := ClassifyFrame(raw)
	switch frame.Kind {
	case FrameDroppedIPv6, FrameDroppedDHCPClient, FrameUnsupportedVLAN, FrameUnknown:
		return nil
	}

	dst, ok := m.ResolveDestination(frame.DstIP.String())
	if !ok {
		return errors.Errorf(errors.PacketUnroutable, "emumanager: no proxy for destination %s", frame.DstIP)
	}

	receiveVTime := ResolveReceiveVTime(hookVTime, elapsedNow, src.LastArrivalVTime)
	src.LastArrivalVTime = receiveVTime
	arrival := receiveVTime.Add(transferDelay)

	pkt := EmuPacket{Src: src, Dst: dst, Frame: frame.Frame, ReceiveVTime: arrival}
	return m.kernel.DeliverExternal(dst.TimelineID, arrival, func(*timeline.Timeline) {
		_ = writer.WriteFrame(dst.TapFD, pkt.Frame)
	})
}

// AdvanceLXCsOnTimeline implements spec §4.G's advance arbitration
// algorithm, called by the simulator before committing a progress
// step on tid.
func (m *Manager) AdvanceLXCsOnTimeline(tid string, targetVTime vtime.Time) (advanced bool, err error) {
	m.mu.Lock()
	proxies := append([]*proxy.Proxy(nil), m.byTimeline[tid]...)
	m.mu.Unlock()

	var moved []*proxy.Proxy

	for _, p := range proxies {
		elapsed, err := p.ElapsedVirtualTime(m.deps)
		if err != nil {
			return false, err
		}
		remaining := int64(targetVTime) - int64(elapsed)
		if remaining <= 0 {
			continue
		}
		deltaDur := time.Duration(remaining) * time.Microsecond
		skipped, err := p.AdvanceBy(m.deps, deltaDur)
		if err != nil {
			return false, err
		}
		if skipped {
			m.bumpSkipped(tid)
			continue
		}
		moved = append(moved, p)
	}

	if len(moved) == 0 {
		return false, nil
	}

	started := time.Now()
	if err := m.dilation.Progress(tid, dilation.NoForce); err != nil {
		return false, err
	}
	wallElapsed := time.Since(started)
	m.observeAdvance(tid, wallElapsed)

	for _, mv := range moved {
		elapsed, err := mv.ElapsedVirtualTime(m.deps)
		if err != nil {
			return false, err
		}
		drift := int64(elapsed) - int64(targetVTime)
		if drift < 0 {
			drift = -drift
		}
		m.mu.Lock()
		threshold := m.driftThreshold
		m.mu.Unlock()
		if time.Duration(drift)*time.Microsecond > threshold {
			if err := m.dilation.FixTimeline(tid); err != nil {
				return false, err
			}
			if err := m.kernel.FixTimeline(tid, targetVTime); err != nil {
				return false, err
			}
			m.bumpFixup(tid)
		}
	}

	if err := m.dilation.Reset(tid); err != nil {
		return false, err
	}
	m.bumpAdvance(tid)
	return true, nil
}

func (m *Manager) bumpAdvance(tid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[tid]; ok {
		c.advances++
	}
}

func (m *Manager) bumpFixup(tid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[tid]; ok {
		c.fixups++
	}
}

func (m *Manager) bumpSkipped(tid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[tid]; ok {
		c.skipped++
	}
}

func (m *Manager) observeAdvance(tid string, d time.Duration) {
	if m.advanceDur == nil {
		return
	}
	m.advanceDur.WithLabelValues(tid).Observe(d.Seconds())
}

// Counters returns a snapshot of tid's bookkeeping, for tests and
// diagnostics.
func (m *Manager) Counters(tid string) (advances, fixups, skipped uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[tid]
	if !ok {
		return 0, 0, 0
	}
	return c.advances, c.fixups, c.skipped
}

// StopExperiment implements spec §4.G's exit path: it expects capture
// goroutines to already have been stopped via ctx cancellation by the
// caller, then unfreezes every container through the dilation service
// and tears every registered Proxy down.
func (m *Manager) StopExperiment(ctx context.Context, destroyScript string) error {
	m.mu.Lock()
	all := make([]*proxy.Proxy, 0)
	for _, proxies := range m.byTimeline {
		all = append(all, proxies...)
	}
	m.mu.Unlock()

	stopErr := m.dilation.StopExperiment()

	var firstErr error
	for _, p := range all {
		if err := p.Teardown(ctx, m.deps, destroyScript); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if stopErr != nil {
		return stopErr
	}
	return firstErr
}
