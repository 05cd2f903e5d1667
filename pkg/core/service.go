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

// Package core is the operator-facing surface: discovery and poll
// triggers, device and threshold mutations, maintenance windows and
// alert lifecycle actions. Every mutation is validated up front and
// rejected rather than clamped.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/netvigil/netvigil/pkg/alerting"
	"github.com/netvigil/netvigil/pkg/discovery"
	"github.com/netvigil/netvigil/pkg/logger"
	"github.com/netvigil/netvigil/pkg/models"
	"github.com/netvigil/netvigil/pkg/poller"
	"github.com/netvigil/netvigil/pkg/registry"
)

// Service wires the operator triggers to the engine components.
type Service struct {
	store    registry.Store
	scanner  *discovery.Scanner
	poller   *poller.Poller
	validate *validator.Validate
	logger   logger.Logger
}

// NewService builds the trigger service. All dependencies are
// required.
func NewService(store registry.Store, scanner *discovery.Scanner, p *poller.Poller, log logger.Logger) (*Service, error) {
	if store == nil || scanner == nil || p == nil {
		return nil, ErrNilDependency
	}

	return &Service{
		store:    store,
		scanner:  scanner,
		poller:   p,
		validate: validator.New(),
		logger:   log.WithComponent("core"),
	}, nil
}

type thresholdRequest struct {
	CPU     float64 `validate:"gte=0,lte=100"`
	Memory  float64 `validate:"gte=0,lte=100"`
	Failure int     `validate:"gte=1,lte=10"`
}

type dropThresholdRequest struct {
	Drop float64 `validate:"gte=0"`
}

type maintenanceRequest struct {
	Duration time.Duration `validate:"gt=0"`
}

type recipientsRequest struct {
	Recipients []string `validate:"required,min=1,dive,email"`
}

// TriggerDiscovery scans a CIDR range or single address and registers
// every responding device.
func (s *Service) TriggerDiscovery(ctx context.Context, cidr string) (*models.DiscoveryResult, error) {
	s.logger.Info().Str("range", cidr).Msg("Discovery triggered")

	return s.scanner.Scan(ctx, cidr)
}

// TriggerManualPoll runs one immediate polling cycle. Rejected while
// another cycle is in flight.
func (s *Service) TriggerManualPoll(ctx context.Context) (*models.CycleSummary, error) {
	s.logger.Info().Msg("Manual poll triggered")

	return s.poller.PollNow(ctx)
}

// AddDevice probes a single address and registers it when it answers.
func (s *Service) AddDevice(ctx context.Context, address string) (*models.Device, error) {
	return s.scanner.AddDevice(ctx, address)
}

// UpdateThresholds replaces a device's alert thresholds. Values out
// of range are rejected, never clamped.
func (s *Service) UpdateThresholds(ctx context.Context, deviceID string, cpu, memory float64, failure int) (*models.Device, error) {
	req := thresholdRequest{CPU: cpu, Memory: memory, Failure: failure}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidThreshold, err)
	}

	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	device.CPUThreshold = cpu
	device.MemoryThreshold = memory
	device.FailureThreshold = failure

	updated, err := s.store.UpdateDevice(ctx, device)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("device_id", deviceID).
		Float64("cpu", cpu).
		Float64("memory", memory).
		Int("failure", failure).
		Msg("Device thresholds updated")

	return updated, nil
}

// UpdateInterfaceThreshold replaces one interface's discard-rate
// threshold.
func (s *Service) UpdateInterfaceThreshold(ctx context.Context, deviceID string, ifIndex int, drop float64) (*models.Interface, error) {
	req := dropThresholdRequest{Drop: drop}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidThreshold, err)
	}

	if err := s.store.SetInterfaceThreshold(ctx, deviceID, ifIndex, drop); err != nil {
		return nil, err
	}

	ifaces, err := s.store.GetInterfaces(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("device_id", deviceID).
		Int("if_index", ifIndex).
		Float64("drop", drop).
		Msg("Interface threshold updated")

	for _, iface := range ifaces {
		if iface.IfIndex == ifIndex {
			return iface, nil
		}
	}

	return nil, registry.ErrInterfaceNotFound
}

// SetMaintenance opens or closes a device's maintenance window.
// Disabling preserves the recorded reason.
func (s *Service) SetMaintenance(ctx context.Context, deviceID string, enabled bool, duration time.Duration, reason string) (*models.Device, error) {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if enabled {
		req := maintenanceRequest{Duration: duration}
		if err := s.validate.Struct(req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}

		alerting.EnableMaintenance(device, duration, reason, time.Now())
	} else {
		alerting.DisableMaintenance(device)
	}

	updated, err := s.store.UpdateDevice(ctx, device)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("device_id", deviceID).
		Bool("enabled", enabled).
		Str("reason", updated.Maintenance.Reason).
		Msg("Maintenance window updated")

	return updated, nil
}

// AcknowledgeAlert marks an active alert as seen. Only triggered
// alerts can be acknowledged.
func (s *Service) AcknowledgeAlert(ctx context.Context, key models.AlertKey) (models.AlertState, error) {
	state, err := s.store.GetAlertState(ctx, key)
	if err != nil {
		return models.AlertClear, err
	}

	next, err := alerting.Acknowledge(state)
	if err != nil {
		return state, err
	}

	if err := s.store.SetAlertState(ctx, key, next); err != nil {
		return state, err
	}

	s.logger.Info().
		Str("device_id", key.DeviceID).
		Str("kind", string(key.Kind)).
		Int("if_index", key.IfIndex).
		Msg("Alert acknowledged")

	return next, nil
}

// ResolveAlert force-clears an alert regardless of its current state.
func (s *Service) ResolveAlert(ctx context.Context, key models.AlertKey) (models.AlertState, error) {
	state, err := s.store.GetAlertState(ctx, key)
	if err != nil {
		return models.AlertClear, err
	}

	next := alerting.Resolve(state)

	if err := s.store.SetAlertState(ctx, key, next); err != nil {
		return state, err
	}

	s.logger.Info().
		Str("device_id", key.DeviceID).
		Str("kind", string(key.Kind)).
		Int("if_index", key.IfIndex).
		Msg("Alert resolved")

	return next, nil
}

// DeleteDevice removes a device and everything recorded about it.
func (s *Service) DeleteDevice(ctx context.Context, id string) error {
	return s.store.DeleteDevice(ctx, id)
}

// GetRecipients returns the current notification recipient list.
func (s *Service) GetRecipients(ctx context.Context) ([]string, error) {
	return s.store.GetRecipients(ctx)
}

// SetRecipients replaces the notification recipient list. Every entry
// must be a valid email address.
func (s *Service) SetRecipients(ctx context.Context, recipients []string) error {
	req := recipientsRequest{Recipients: recipients}
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := s.store.SetRecipients(ctx, recipients); err != nil {
		return err
	}

	s.logger.Info().Int("count", len(recipients)).Msg("Recipients updated")

	return nil
}

// ClearRecipients empties the recipient list; alert transitions keep
// being recorded, delivery is skipped.
func (s *Service) ClearRecipients(ctx context.Context) error {
	return s.store.SetRecipients(ctx, nil)
}
