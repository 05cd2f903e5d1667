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

package registry

import "errors"

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrInterfaceNotFound = errors.New("interface not found")
	ErrNilDevice         = errors.New("device cannot be nil")
	ErrNilCommit         = errors.New("poll commit cannot be nil")
	ErrMissingAddress    = errors.New("device address is required")
)
