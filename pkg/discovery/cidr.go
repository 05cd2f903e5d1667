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

package discovery

import (
	"fmt"
	"net"
)

const (
	// Prefixes shorter than this have distinct network and broadcast
	// addresses that are never probed.
	hostOnlyPrefix = 31

	// maxRangeSize caps how many addresses a single scan expands to.
	maxRangeSize = 1024
)

// HostAddresses expands a CIDR range into the usable host addresses.
// Boundary policy: the network and broadcast addresses are excluded
// for IPv4 prefixes shorter than /31; /31 and /32 ranges treat every
// address as a host. A /30 therefore yields exactly 2 targets, and
// the scan's total-scanned count reflects probed hosts only.
func HostAddresses(cidr string) ([]string, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}

	ones, _ := ipNet.Mask.Size()

	var targets []string

	cur := ip.Mask(ipNet.Mask)
	for ; ipNet.Contains(cur); incrementIP(cur) {
		targets = append(targets, cur.String())

		if len(targets) > maxRangeSize {
			return nil, fmt.Errorf("%w: %s expands past %d addresses", ErrRangeTooLarge, cidr, maxRangeSize)
		}
	}

	if ip.To4() != nil && ones < hostOnlyPrefix && len(targets) > 2 {
		targets = targets[1 : len(targets)-1]
	}

	return targets, nil
}

// incrementIP increments an IP address in place.
func incrementIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++

		if ip[i] > 0 {
			break
		}
	}
}
