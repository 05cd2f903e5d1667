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

// Package discovery expands network ranges into candidate addresses,
// probes them concurrently over SNMP and upserts responding devices
// into the registry.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netvigil/netvigil/pkg/logger"
	"github.com/netvigil/netvigil/pkg/models"
	"github.com/netvigil/netvigil/pkg/registry"
	"github.com/netvigil/netvigil/pkg/snmp"
)

const defaultConcurrency = 20

// Config controls one scanner instance.
type Config struct {
	Concurrency int

	// Defaults applied to newly created devices.
	CPUThreshold     float64
	MemoryThreshold  float64
	FailureThreshold int
}

// Scanner probes addresses and registers responding devices. Each
// upsert is an independent registry write, so partial progress
// survives a late failure.
type Scanner struct {
	client snmp.Client
	store  registry.Store
	config Config
	logger logger.Logger
}

// NewScanner creates a Scanner.
func NewScanner(client snmp.Client, store registry.Store, config Config, log logger.Logger) *Scanner {
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}

	return &Scanner{
		client: client,
		store:  store,
		config: config,
		logger: log.WithComponent("discovery"),
	}
}

// Scan probes every usable host address in the CIDR range. Probe
// failures are skipped silently; absence is not an error.
func (s *Scanner) Scan(ctx context.Context, cidr string) (*models.DiscoveryResult, error) {
	targets, err := HostAddresses(cidr)
	if err != nil {
		return nil, err
	}

	result := &models.DiscoveryResult{
		JobID:        uuid.New().String(),
		CIDR:         cidr,
		StartedAt:    time.Now(),
		TotalScanned: len(targets),
	}

	s.logger.Info().
		Str("job_id", result.JobID).
		Str("cidr", cidr).
		Int("targets", len(targets)).
		Msg("Starting discovery scan")

	concurrency := s.config.Concurrency
	if concurrency > len(targets) {
		concurrency = len(targets)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	targetChan := make(chan string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for target := range targetChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				device, err := s.probeAndRegister(ctx, target)
				if err != nil {
					s.logger.Debug().Str("target", target).Err(err).Msg("Host skipped")
					continue
				}

				mu.Lock()
				result.Devices = append(result.Devices, device)
				result.DevicesFound++
				mu.Unlock()
			}
		}()
	}

	for _, target := range targets {
		select {
		case targetChan <- target:
		case <-ctx.Done():
			close(targetChan)
			wg.Wait()

			return result, ctx.Err()
		}
	}

	close(targetChan)
	wg.Wait()

	s.logger.Info().
		Str("job_id", result.JobID).
		Int("scanned", result.TotalScanned).
		Int("found", result.DevicesFound).
		Msg("Discovery scan complete")

	return result, nil
}

// AddDevice is the manual single-device variant of the scan path. A
// probe failure is returned to the caller as a validation failure
// instead of being skipped.
func (s *Scanner) AddDevice(ctx context.Context, address string) (*models.Device, error) {
	if net.ParseIP(address) == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	device, err := s.probeAndRegister(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProbeFailed, address)
	}

	return device, nil
}

// probeAndRegister issues the identity GET and upserts the device on
// success.
func (s *Scanner) probeAndRegister(ctx context.Context, target string) (*models.Device, error) {
	values, err := s.client.Get(ctx, target, []string{
		snmp.OIDSysName,
		snmp.OIDSysObjectID,
		snmp.OIDIfPhysAddress1,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()

	hostname := values[snmp.OIDSysName]
	if hostname == "" {
		hostname = target
	}

	device := &models.Device{
		IP:               target,
		Hostname:         hostname,
		MAC:              values[snmp.OIDIfPhysAddress1],
		Vendor:           snmp.VendorFromSysObjectID(values[snmp.OIDSysObjectID]),
		Reachable:        true,
		CPUThreshold:     s.config.CPUThreshold,
		MemoryThreshold:  s.config.MemoryThreshold,
		FailureThreshold: s.config.FailureThreshold,
		FirstSeen:        now,
		LastSeen:         now,
	}

	stored, err := s.store.UpsertDevice(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("failed to register device %s: %w", target, err)
	}

	s.logger.Info().
		Str("ip", stored.IP).
		Str("hostname", stored.Hostname).
		Str("vendor", stored.Vendor).
		Msg("Device discovered")

	return stored, nil
}
