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

package devices

import (
	"github.com/homeworker/HomeWorker/pkg/metrics"
)

const (
	subSystem = "devices"
)

var (
	// Number of registered boards
	boardsRegisteredTotal = metrics.MustRegisterGauge(subSystem,
		"boards_registered",
		"Number of registered boards")
	// Number of boards configured successfully
	boardsConfiguredTotal = metrics.MustRegisterGauge(subSystem,
		"boards_configured",
		"Number of boards configured successfully")
	// Total number of input polls
	pollsTotal = metrics.MustRegisterCounter(subSystem,
		"polls_total",
		"Total number of input polls")
	// Total number of failed board reads
	pollErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"poll_errors_total",
		"Total number of failed board reads",
		"board")
	// Total number of input changes
	changesTotal = metrics.MustRegisterCounterVec(subSystem,
		"changes_total",
		"Total number of input changes",
		"board")
	// Total number of output writes
	writesTotal = metrics.MustRegisterCounterVec(subSystem,
		"writes_total",
		"Total number of output writes",
		"board")
	// Total number of output writes skipped because nothing changed
	writesSkippedTotal = metrics.MustRegisterCounterVec(subSystem,
		"writes_skipped_total",
		"Total number of output writes skipped because nothing changed",
		"board")
	// Total number of failed output writes
	writeErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"write_errors_total",
		"Total number of failed output writes",
		"board")
	// Total number of times the interrupt line was seen asserted
	interruptsTotal = metrics.MustRegisterCounter(subSystem,
		"interrupts_total",
		"Total number of times the interrupt line was seen asserted")
	// Total number of failed interrupt line reads
	interruptErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"interrupt_errors_total",
		"Total number of failed interrupt line reads")
	// Total number of times a subscriber queue was full
	subscriptionStallsTotal = metrics.MustRegisterCounter(subSystem,
		"subscription_stalls_total",
		"Total number of times a subscriber queue was full")
	// Total number of changes not delivered to a closed subscriber
	subscriptionDropsTotal = metrics.MustRegisterCounter(subSystem,
		"subscription_drops_total",
		"Total number of changes not delivered to a closed subscriber")
)
