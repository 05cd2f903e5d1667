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
	"fmt"
	"strings"

	"github.com/netvigil/netvigil/pkg/models"
)

const timestampLayout = "2006-01-02 15:04:05 UTC"

var alertTitles = map[models.MetricKind]string{
	models.MetricCPU:          "CPU Usage",
	models.MetricMemory:       "Memory Usage",
	models.MetricReachability: "Device Unreachable",
	models.MetricStatus:       "Interface Down",
	models.MetricDrops:        "Interface Discard Rate",
}

// Subject builds the notification subject line.
func Subject(ev *Event) string {
	title := alertTitles[ev.Kind]
	if title == "" {
		title = string(ev.Kind)
	}

	if ev.Direction == DirectionRecovery {
		return fmt.Sprintf("[RESOLVED] %s Recovered - %s", title, ev.Hostname)
	}

	return fmt.Sprintf("[CRITICAL] %s Alert - %s", title, ev.Hostname)
}

// Body builds the plain-text notification body.
func Body(ev *Event) string {
	var b strings.Builder

	if ev.Direction == DirectionRecovery {
		b.WriteString("Your network monitoring system has detected a recovery.\n\n")
	} else {
		b.WriteString("This is an automated alert from your network monitoring system.\n\n")
	}

	fmt.Fprintf(&b, "Device:      %s\n", ev.Hostname)
	fmt.Fprintf(&b, "IP Address:  %s\n", ev.IP)
	fmt.Fprintf(&b, "Timestamp:   %s\n", ev.Timestamp.UTC().Format(timestampLayout))

	if ev.IfName != "" {
		fmt.Fprintf(&b, "Interface:   %s (index %d)\n", ev.IfName, ev.IfIndex)
	}

	b.WriteString("\n")

	switch ev.Kind {
	case models.MetricReachability:
		if ev.Direction == DirectionRecovery {
			b.WriteString("Status: REACHABLE\nThe device is responding to polls again; the failure counter has been reset.\n")
		} else {
			fmt.Fprintf(&b, "Status: UNREACHABLE\nConsecutive poll failures: %d (threshold %d)\n",
				ev.ConsecutiveFailures, int(ev.Threshold))
		}
	case models.MetricStatus:
		if ev.Direction == DirectionRecovery {
			b.WriteString("The interface is UP again.\n")
		} else {
			b.WriteString("The interface is DOWN.\n")
		}
	default:
		fmt.Fprintf(&b, "Current value: %.2f%%\nConfigured threshold: %.2f%%\n", ev.Value, ev.Threshold)

		if ev.Direction == DirectionAlert {
			fmt.Fprintf(&b, "Exceeded by: %.2f%%\n", ev.Value-ev.Threshold)
		} else {
			b.WriteString("The value has returned to normal levels; the alert has been cleared automatically.\n")
		}
	}

	b.WriteString("\nThis is an automated notification. Please do not reply to this email.\n")

	return b.String()
}
