// Copyright 2021-2026 Ewout Prangsma
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

package service

import (
	"github.com/homeworker/HomeWorker/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of workers started
	workersStartedTotal = metrics.MustRegisterCounter(subSystem,
		"workers_started_total",
		"Total number of workers started")
	// Total number of workers that ended with an error
	workerFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"worker_failures_total",
		"Total number of workers that ended with an error")
	// Total number of recovered worker panics
	workerPanicsTotal = metrics.MustRegisterCounter(subSystem,
		"worker_panics_total",
		"Total number of recovered worker panics")
	// Total number of SetActuator calls per object ID
	setActuatorRequestTotal = metrics.MustRegisterCounterVec(subSystem,
		"set_actuator_request_total",
		"Total number of SetActuator calls per ID",
		"id")
	// Total number of MoveShutter calls per object ID
	moveShutterRequestTotal = metrics.MustRegisterCounterVec(subSystem,
		"move_shutter_request_total",
		"Total number of MoveShutter calls per ID",
		"id")
	// Total number of SetReading calls per object ID
	setReadingRequestTotal = metrics.MustRegisterCounterVec(subSystem,
		"set_reading_request_total",
		"Total number of SetReading calls per ID",
		"id")
)
