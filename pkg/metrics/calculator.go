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

// Package metrics computes derived percentages and rates from raw
// polled counters. All functions are deterministic and never return
// NaN or Inf; values are not rounded before threshold comparison.
package metrics

import "time"

const percentMax = 100.0

// clampPercent bounds a value to [0, 100].
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > percentMax {
		return percentMax
	}

	return v
}

// CPUPercent passes through an already-normalized CPU load value,
// clamping out-of-range device readings.
func CPUPercent(raw float64) float64 {
	return clampPercent(raw)
}

// MemoryPercent derives utilization from used and free pool bytes.
// Zero total memory reports 0.
func MemoryPercent(used, free float64) float64 {
	total := used + free
	if total <= 0 {
		return 0
	}

	return clampPercent(used / total * percentMax)
}

// BandwidthPercent derives link utilization from the octet delta over
// one poll interval against the interface speed in bits per second.
// Unknown speed or a non-positive interval reports 0.
func BandwidthPercent(deltaOctets uint64, interval time.Duration, speedBPS uint64) float64 {
	if speedBPS == 0 || interval <= 0 {
		return 0
	}

	bits := float64(deltaOctets) * 8
	capacity := float64(speedBPS) * interval.Seconds()

	return clampPercent(bits / capacity * percentMax)
}

// DiscardRate is total discards against total octets moved, as a
// percentage. Zero traffic reports 0, never a division error.
func DiscardRate(discardsIn, discardsOut, octetsIn, octetsOut uint64) float64 {
	return counterRate(discardsIn+discardsOut, octetsIn+octetsOut)
}

// ErrorRate is total errors against total octets moved, as a
// percentage. Zero traffic reports 0.
func ErrorRate(errorsIn, errorsOut, octetsIn, octetsOut uint64) float64 {
	return counterRate(errorsIn+errorsOut, octetsIn+octetsOut)
}

func counterRate(count, traffic uint64) float64 {
	if traffic == 0 {
		return 0
	}

	return float64(count) / float64(traffic) * percentMax
}
