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

import "errors"

var (
	// ErrAlertNotActive occurs when acknowledging an alert that is not
	// currently triggered; there is no clear-to-acknowledged transition.
	ErrAlertNotActive = errors.New("alert is not active")
)
