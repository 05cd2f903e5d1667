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

package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/netvigil/netvigil/pkg/models"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "cpu alert",
			ev:   Event{Direction: DirectionAlert, Kind: models.MetricCPU, Hostname: "core-sw-01"},
			want: "[CRITICAL] CPU Usage Alert - core-sw-01",
		},
		{
			name: "cpu recovery",
			ev:   Event{Direction: DirectionRecovery, Kind: models.MetricCPU, Hostname: "core-sw-01"},
			want: "[RESOLVED] CPU Usage Recovered - core-sw-01",
		},
		{
			name: "reachability alert",
			ev:   Event{Direction: DirectionAlert, Kind: models.MetricReachability, Hostname: "edge-r1"},
			want: "[CRITICAL] Device Unreachable Alert - edge-r1",
		},
		{
			name: "interface down",
			ev:   Event{Direction: DirectionAlert, Kind: models.MetricStatus, Hostname: "edge-r1"},
			want: "[CRITICAL] Interface Down Alert - edge-r1",
		},
		{
			name: "unknown kind falls back to the raw name",
			ev:   Event{Direction: DirectionAlert, Kind: models.MetricKind("custom"), Hostname: "h"},
			want: "[CRITICAL] custom Alert - h",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(&tt.ev))
		})
	}
}

func TestBodyThresholdAlert(t *testing.T) {
	ev := Event{
		Direction: DirectionAlert,
		Kind:      models.MetricCPU,
		Hostname:  "core-sw-01",
		IP:        "10.0.0.1",
		Value:     91.5,
		Threshold: 80,
		Timestamp: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	body := Body(&ev)

	assert.Contains(t, body, "Device:      core-sw-01")
	assert.Contains(t, body, "IP Address:  10.0.0.1")
	assert.Contains(t, body, "2026-03-14 12:00:00 UTC")
	assert.Contains(t, body, "Current value: 91.50%")
	assert.Contains(t, body, "Configured threshold: 80.00%")
	assert.Contains(t, body, "Exceeded by: 11.50%")
	assert.NotContains(t, body, "Interface:")
}

func TestBodyReachability(t *testing.T) {
	ev := Event{
		Direction:           DirectionAlert,
		Kind:                models.MetricReachability,
		Hostname:            "edge-r1",
		IP:                  "10.0.0.2",
		Threshold:           3,
		ConsecutiveFailures: 3,
		Timestamp:           time.Now(),
	}

	body := Body(&ev)
	assert.Contains(t, body, "Status: UNREACHABLE")
	assert.Contains(t, body, "Consecutive poll failures: 3 (threshold 3)")

	ev.Direction = DirectionRecovery
	body = Body(&ev)
	assert.Contains(t, body, "Status: REACHABLE")
	assert.Contains(t, body, "failure counter has been reset")
}

func TestBodyInterfaceSection(t *testing.T) {
	ev := Event{
		Direction: DirectionAlert,
		Kind:      models.MetricStatus,
		Hostname:  "core-sw-01",
		IP:        "10.0.0.1",
		IfIndex:   3,
		IfName:    "Gi0/3",
		Timestamp: time.Now(),
	}

	body := Body(&ev)
	assert.Contains(t, body, "Interface:   Gi0/3 (index 3)")
	assert.Contains(t, body, "The interface is DOWN.")

	ev.Direction = DirectionRecovery
	assert.Contains(t, Body(&ev), "The interface is UP again.")
}
