/*
 * Copyright 2026 Netvigil Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package poller runs the periodic polling scheduler and the
// per-device poll unit: device metrics, interface counters, derived
// samples and alert evaluation, committed atomically per device.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/netvigil/netvigil/pkg/logger"
	"github.com/netvigil/netvigil/pkg/models"
	"github.com/netvigil/netvigil/pkg/notify"
	"github.com/netvigil/netvigil/pkg/registry"
	"github.com/netvigil/netvigil/pkg/snmp"
)

// Config controls the scheduler cadence and fan-out.
type Config struct {
	Interval    time.Duration
	Concurrency int

	// DropThreshold is applied to interfaces seen for the first time.
	DropThreshold float64
}

const (
	defaultInterval    = 60 * time.Second
	defaultConcurrency = 20
)

// Poller is the fan-out driver. It holds no per-device state; each
// tick loads the device list and launches one poll unit per device
// through a shared concurrency-bounded slot pool. A new tick never
// cancels in-flight work; overlapping cycles share the same pool.
type Poller struct {
	store      registry.Store
	client     snmp.Client
	dispatcher *notify.Dispatcher
	config     Config
	clock      Clock
	logger     logger.Logger

	// slots is the shared worker pool across overlapping cycles.
	slots chan struct{}

	mu     sync.Mutex
	active int
}

// New creates a Poller.
func New(store registry.Store, client snmp.Client, dispatcher *notify.Dispatcher, config Config, log logger.Logger) (*Poller, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	if client == nil {
		return nil, ErrNilClient
	}

	if config.Interval <= 0 {
		config.Interval = defaultInterval
	}

	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}

	return &Poller{
		store:      store,
		client:     client,
		dispatcher: dispatcher,
		config:     config,
		clock:      realClock{},
		logger:     log.WithComponent("poller"),
		slots:      make(chan struct{}, config.Concurrency),
	}, nil
}

// Start runs the scheduler loop until the context is canceled.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info().
		Dur("interval", p.config.Interval).
		Int("concurrency", p.config.Concurrency).
		Msg("Starting polling scheduler")

	ticker := p.clock.Ticker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Context canceled, stopping polling scheduler")

			return ctx.Err()
		case <-ticker.Chan():
			p.beginCycle()
			summary := p.runCycle(ctx, false)
			p.endCycle()

			if summary != nil {
				p.logger.Info().
					Int("total", summary.Total).
					Int("succeeded", summary.Succeeded).
					Int("failed", summary.Failed).
					Msg("Poll cycle complete")
			}
		}
	}
}

// PollNow runs one manual cycle with the identical per-device logic
// and the same pool semantics. It is rejected while another cycle is
// in flight so operators get a clear in-progress answer instead of a
// silently queued run.
func (p *Poller) PollNow(ctx context.Context) (*models.CycleSummary, error) {
	if !p.tryBeginCycle() {
		return nil, ErrPollInProgress
	}
	defer p.endCycle()

	summary := p.runCycle(ctx, true)
	if summary == nil {
		summary = &models.CycleSummary{StartedAt: p.clock.Now(), Manual: true}
	}

	return summary, nil
}

// tryBeginCycle claims the in-progress marker only when no cycle is
// running. The check and the claim share one critical section so two
// concurrent manual polls can never both pass.
func (p *Poller) tryBeginCycle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active > 0 {
		return false
	}

	p.active++

	return true
}

// beginCycle claims the in-progress marker unconditionally; scheduled
// ticks are allowed to overlap.
func (p *Poller) beginCycle() {
	p.mu.Lock()
	p.active++
	p.mu.Unlock()
}

func (p *Poller) endCycle() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
}

// runCycle fans one poll unit out per device. The scheduler thread
// only blocks on slot acquisition.
func (p *Poller) runCycle(ctx context.Context, manual bool) *models.CycleSummary {
	devices, err := p.store.GetDevices(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to load device list, skipping cycle")

		return nil
	}

	if len(devices) == 0 {
		p.logger.Info().Msg("No devices registered, skipping poll cycle")

		return &models.CycleSummary{StartedAt: p.clock.Now(), Manual: manual}
	}

	// One timestamp for the whole cycle so samples across devices
	// aggregate cleanly.
	cycleTime := p.clock.Now()

	summary := &models.CycleSummary{
		StartedAt: cycleTime,
		Manual:    manual,
		Total:     len(devices),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, device := range devices {
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()

			return summary
		}

		wg.Add(1)

		go func(id string) {
			defer wg.Done()
			defer func() { <-p.slots }()

			ok := p.pollDevice(ctx, id, cycleTime)

			mu.Lock()
			if ok {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
			mu.Unlock()
		}(device.ID)
	}

	wg.Wait()

	return summary
}
