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

package snmp

import (
	"strconv"
	"strings"
)

// Common SNMP OIDs - defined as constants for clarity and maintainability
const (
	// System OIDs
	OIDSysObjectID = ".1.3.6.1.2.1.1.2.0"
	OIDSysUptime   = ".1.3.6.1.2.1.1.3.0"
	OIDSysName     = ".1.3.6.1.2.1.1.5.0"

	// First physical address in the interface table; used as the
	// device MAC during discovery.
	OIDIfPhysAddress1 = ".1.3.6.1.2.1.2.2.1.6.1"

	// Interface table OIDs
	OIDIfDescr       = ".1.3.6.1.2.1.2.2.1.2"
	OIDIfSpeed       = ".1.3.6.1.2.1.2.2.1.5"
	OIDIfAdminStatus = ".1.3.6.1.2.1.2.2.1.7"
	OIDIfOperStatus  = ".1.3.6.1.2.1.2.2.1.8"
	OIDIfInOctets    = ".1.3.6.1.2.1.2.2.1.10"
	OIDIfInDiscards  = ".1.3.6.1.2.1.2.2.1.13"
	OIDIfInErrors    = ".1.3.6.1.2.1.2.2.1.14"
	OIDIfOutOctets   = ".1.3.6.1.2.1.2.2.1.16"
	OIDIfOutDiscards = ".1.3.6.1.2.1.2.2.1.19"
	OIDIfOutErrors   = ".1.3.6.1.2.1.2.2.1.20"

	// Extended interface table (ifXTable); ifHighSpeed reports Mbps.
	OIDIfHighSpeed = ".1.3.6.1.2.1.31.1.1.1.15"

	// Cisco device metrics
	OIDCiscoCPU5Sec     = ".1.3.6.1.4.1.9.9.109.1.1.1.1.5.1"
	OIDCiscoMemPoolUsed = ".1.3.6.1.4.1.9.9.48.1.1.1.5.1"
	OIDCiscoMemPoolFree = ".1.3.6.1.4.1.9.9.48.1.1.1.6.1"
)

// enterprisePrefix is the sysObjectID subtree assigned to private
// enterprises; the next arc identifies the vendor.
const enterprisePrefix = "1.3.6.1.4.1."

var vendorByEnterprise = map[int]string{
	9:    "Cisco",
	11:   "HP",
	43:   "3Com",
	311:  "Microsoft",
	674:  "Dell",
	2021: "UCD-SNMP",
	2636: "Juniper",
	8072: "Net-SNMP",
}

// VendorFromSysObjectID maps a sysObjectID to a vendor name from its
// enterprise number. Unknown vendors report as "N/A".
func VendorFromSysObjectID(oid string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(oid, "."), enterprisePrefix)
	if trimmed == oid || trimmed == strings.TrimPrefix(oid, ".") {
		return "N/A"
	}

	arc := trimmed
	if i := strings.Index(trimmed, "."); i >= 0 {
		arc = trimmed[:i]
	}

	enterprise, err := strconv.Atoi(arc)
	if err != nil {
		return "N/A"
	}

	if vendor, ok := vendorByEnterprise[enterprise]; ok {
		return vendor
	}

	return "N/A"
}
