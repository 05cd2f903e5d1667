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

package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netvigil/netvigil/pkg/models"
)

func TestExceeds(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		threshold float64
		want      bool
	}{
		{name: "above", value: 80.1, threshold: 80, want: true},
		{name: "exact equality is not exceedance", value: 80, threshold: 80, want: false},
		{name: "below", value: 79.9, threshold: 80, want: false},
		{name: "zero threshold zero value", value: 0, threshold: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Exceeds(tt.value, tt.threshold))
		})
	}
}

func TestEvaluateTransitions(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		state      models.AlertState
		exceeded   bool
		wantState  models.AlertState
		wantNotify Notification
	}{
		{
			name:       "clear stays clear on normal value",
			state:      models.AlertClear,
			exceeded:   false,
			wantState:  models.AlertClear,
			wantNotify: NotifyNone,
		},
		{
			name:       "clear triggers on exceedance",
			state:      models.AlertClear,
			exceeded:   true,
			wantState:  models.AlertTriggered,
			wantNotify: NotifyAlert,
		},
		{
			name:       "sustained breach is a no-op",
			state:      models.AlertTriggered,
			exceeded:   true,
			wantState:  models.AlertTriggered,
			wantNotify: NotifyNone,
		},
		{
			name:       "triggered recovers on normal value",
			state:      models.AlertTriggered,
			exceeded:   false,
			wantState:  models.AlertClear,
			wantNotify: NotifyRecovery,
		},
		{
			name:       "acknowledged breach stays acknowledged",
			state:      models.AlertAcknowledged,
			exceeded:   true,
			wantState:  models.AlertAcknowledged,
			wantNotify: NotifyNone,
		},
		{
			name:       "acknowledged recovers and clears the acknowledgment",
			state:      models.AlertAcknowledged,
			exceeded:   false,
			wantState:  models.AlertClear,
			wantNotify: NotifyRecovery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(Input{Exceeded: tt.exceeded, State: tt.state, Now: now})

			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, tt.wantNotify, out.Notify)
			assert.False(t, out.WindowExpired)
		})
	}
}

// A CPU series crossing the threshold twice must notify exactly twice:
// one alert, one recovery.
func TestEvaluateHysteresisSeries(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	threshold := 80.0

	series := []float64{50, 85, 90, 70}
	wantStates := []models.AlertState{
		models.AlertClear,
		models.AlertTriggered,
		models.AlertTriggered,
		models.AlertClear,
	}
	wantNotify := []Notification{NotifyNone, NotifyAlert, NotifyNone, NotifyRecovery}

	state := models.AlertClear

	for i, value := range series {
		out := Evaluate(Input{Exceeded: Exceeds(value, threshold), State: state, Now: now})

		assert.Equalf(t, wantStates[i], out.State, "state after value %v", value)
		assert.Equalf(t, wantNotify[i], out.Notify, "notify after value %v", value)

		state = out.State
	}
}

func TestEvaluateMaintenanceSuppression(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	active := models.MaintenanceWindow{
		Enabled: true,
		Until:   now.Add(time.Hour),
		Reason:  "planned upgrade",
	}

	out := Evaluate(Input{Exceeded: true, State: models.AlertClear, Maintenance: active, Now: now})

	assert.Equal(t, models.AlertClear, out.State)
	assert.Equal(t, NotifyNone, out.Notify)
	assert.False(t, out.WindowExpired)

	// Recovery transitions are suppressed too.
	out = Evaluate(Input{Exceeded: false, State: models.AlertTriggered, Maintenance: active, Now: now})

	assert.Equal(t, models.AlertTriggered, out.State)
	assert.Equal(t, NotifyNone, out.Notify)
}

func TestEvaluateStaleWindowExpiresAndProceeds(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	stale := models.MaintenanceWindow{
		Enabled: true,
		Until:   now.Add(-time.Minute),
		Reason:  "planned upgrade",
	}

	out := Evaluate(Input{Exceeded: true, State: models.AlertClear, Maintenance: stale, Now: now})

	assert.True(t, out.WindowExpired)
	assert.Equal(t, models.AlertTriggered, out.State)
	assert.Equal(t, NotifyAlert, out.Notify)
}

func TestAcknowledge(t *testing.T) {
	next, err := Acknowledge(models.AlertTriggered)
	require.NoError(t, err)
	assert.Equal(t, models.AlertAcknowledged, next)

	for _, state := range []models.AlertState{models.AlertClear, models.AlertAcknowledged} {
		next, err := Acknowledge(state)
		require.ErrorIs(t, err, ErrAlertNotActive)
		assert.Equal(t, state, next)
	}
}

func TestResolve(t *testing.T) {
	for _, state := range []models.AlertState{models.AlertClear, models.AlertTriggered, models.AlertAcknowledged} {
		assert.Equal(t, models.AlertClear, Resolve(state))
	}
}
