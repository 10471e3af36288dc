// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grimmlab/chronoswitch/internal/dilation"
	dilationsim "github.com/grimmlab/chronoswitch/internal/dilation/sim"
	"github.com/grimmlab/chronoswitch/internal/emumanager"
	"github.com/grimmlab/chronoswitch/internal/logging"
	"github.com/grimmlab/chronoswitch/internal/procconfig"
	"github.com/grimmlab/chronoswitch/internal/proxy"
	"github.com/grimmlab/chronoswitch/internal/sockethook"
	hookfile "github.com/grimmlab/chronoswitch/internal/sockethook/file"
	"github.com/grimmlab/chronoswitch/internal/timeline"
	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// Engine wires one experiment's Timelines, Proxies, dilation service,
// and Emulation Manager together — the runtime counterpart to
// ExperimentSpec's static description.
type Engine struct {
	spec     *ExperimentSpec
	kernel   *timeline.Kernel
	dilation dilation.Service
	deps     proxy.Deps
	manager  *emumanager.Manager
	proxies  []*proxy.Proxy
	hooks    sockethook.Service
	log      *logging.Logger
}

// BuildEngine constructs an Engine from spec and procCfg but does not
// yet Launch any Proxy — call Start for that.
func BuildEngine(spec *ExperimentSpec, procCfg procconfig.Config, log *logging.Logger) (*Engine, error) {
	var dil dilation.Service
	switch spec.Dilation {
	case "", "sim":
		dil = dilationsim.NewService()
	case "linux":
		dil = newLinuxDilationService()
	default:
		return nil, fmt.Errorf("chronoswitchd: unknown dilation backend %q", spec.Dilation)
	}

	deps := proxy.Deps{
		Links:    proxy.NetlinkLinkManager{},
		Scripts:  proxy.ExecScriptRunner{},
		Dilation: dil,
	}

	advanceHist, err := emumanager.NewAdvanceDurationHistogram(nil)
	if err != nil {
		return nil, fmt.Errorf("chronoswitchd: advance histogram: %w", err)
	}

	kernel := timeline.NewKernel()
	manager := emumanager.NewManager(kernel, dil, deps, advanceHist)
	manager.SetDriftThreshold(time.Duration(procCfg.AdvanceDriftThreshold) * time.Microsecond)
	manager.SetCapturePollTimeout(procCfg.CapturePollTimeout)

	e := &Engine{spec: spec, kernel: kernel, dilation: dil, deps: deps, manager: manager, log: log}

	if spec.SocketHookFile != "" {
		hooks, err := hookfile.New(spec.SocketHookFile)
		if err != nil {
			if procCfg.SocketHookStrict {
				return nil, fmt.Errorf("chronoswitchd: socket-hook required but unavailable: %w", err)
			}
			log.Component("emumanager").Warn("socket-hook unavailable, falling back to elapsed_now", "path", spec.SocketHookFile, "error", err)
		} else {
			fallback, ferr := emumanager.NewHookFallbackCounter(nil)
			if ferr != nil {
				return nil, fmt.Errorf("chronoswitchd: hook fallback counter: %w", ferr)
			}
			manager.SetHookService(hooks, fallback, log)
			e.hooks = hooks
		}
	}

	for _, tlSpec := range spec.Timelines {
		kernel.AddTimeline(timeline.NewTimeline(tlSpec.ID))
	}
	return e, nil
}

// Start runs spec.CreateScript/Attach/Freeze for every configured
// Proxy (spec §4.F steps 1–3), then asserts property 9 across all of
// them (every Proxy's synchronize_and_freeze instant must match).
func (e *Engine) Start(ctx context.Context) error {
	for _, tlSpec := range e.spec.Timelines {
		for _, ps := range tlSpec.Proxies {
			p := proxy.New(ps.NHI, ps.IP, ps.Container)
			p.TDF = ps.TDF

			if err := p.Launch(ctx, e.deps, e.spec.CreateScript); err != nil {
				return fmt.Errorf("chronoswitchd: launch %q: %w", ps.Container, err)
			}
			if err := p.Attach(e.deps, ps.PID, tlSpec.ID); err != nil {
				return fmt.Errorf("chronoswitchd: attach %q: %w", ps.Container, err)
			}
			if err := p.Freeze(e.deps); err != nil {
				return fmt.Errorf("chronoswitchd: freeze %q: %w", ps.Container, err)
			}

			e.manager.RegisterProxy(tlSpec.ID, p)
			e.proxies = append(e.proxies, p)
			e.log.Component("proxy").Info("attached", "container", ps.Container, "nhi", ps.NHI, "timeline_id", tlSpec.ID)
		}
	}

	if err := proxy.AssertSameFreezeInstant(e.proxies); err != nil {
		return fmt.Errorf("chronoswitchd: %w", err)
	}
	return nil
}

// zeroTransferDelay is the per-frame transfer delay Run hands to every
// capture loop: the experiment config carries no link transfer delay
// for the emulation path, so chronoswitchd uses zero.
func zeroTransferDelay(*proxy.Proxy) vtime.Duration { return 0 }

// Run drives the experiment to completion: one capture goroutine per
// Timeline plus the Timeline kernel's own per-Timeline progress
// goroutines, joined with errgroup.Group so any one failure stops the
// whole run (spec §5's "one goroutine per Timeline" concurrency
// model, generalized to cover both the kernel side and the capture
// side).
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	byTimeline := make(map[string][]*proxy.Proxy)
	for _, p := range e.proxies {
		byTimeline[p.TimelineID] = append(byTimeline[p.TimelineID], p)
	}
	for tid, proxies := range byTimeline {
		tid, proxies := tid, proxies
		g.Go(func() error {
			return e.manager.RunCaptureLoop(ctx, tid, proxies, zeroTransferDelay, emumanager.RealTapWriter{})
		})
	}

	g.Go(func() error {
		return e.kernel.Run(ctx)
	})

	return g.Wait()
}

// Stop tears down every Proxy and unfreezes the dilation service
// (spec §4.F step 4, spec §4.G's stopExperiment).
func (e *Engine) Stop(ctx context.Context) error {
	if e.hooks != nil {
		_ = e.hooks.Close()
	}
	return e.manager.StopExperiment(ctx, e.spec.DestroyScript)
}
