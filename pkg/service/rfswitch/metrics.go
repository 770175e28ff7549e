// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package rfswitch

import (
	"github.com/homeworker/HomeWorker/pkg/metrics"
)

const (
	subSystem = "rfswitch"
)

var (
	// Number of registered remote switches
	switchesRegisteredTotal = metrics.MustRegisterGauge(subSystem,
		"switches_registered_total",
		"Number of registered remote switches")
	// Number of transmitted commands
	sendsTotal = metrics.MustRegisterCounterVec(subSystem,
		"sends_total",
		"Number of transmitted commands",
		"id", "command")
	// Number of commands that failed to transmit completely
	sendErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"send_errors_total",
		"Number of commands that failed to transmit completely",
		"id")
	// Duration of a transmission, including all repeats
	sendDuration = metrics.MustRegisterHistogramVec(subSystem,
		"send_duration_seconds",
		"Duration of a transmission, including all repeats",
		"id")
)
