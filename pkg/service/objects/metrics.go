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

package objects

import (
	"github.com/homeworker/HomeWorker/pkg/metrics"
)

const (
	subSystem = "objects"
)

var (
	// Number of registered objects
	objectsCreatedTotal = metrics.MustRegisterGauge(subSystem,
		"objects_created_total",
		"Number of registered objects")

	// Number of configured objects
	objectsConfiguredTotal = metrics.MustRegisterGauge(subSystem,
		"objects_configured_total",
		"Number of configured objects")

	// Binary output metrics
	binaryOutputRequestsTotal = metrics.MustRegisterCounterVec(subSystem,
		"binary_output_requests_total",
		"Number of binary output requests",
		"id")
	binaryOutputStateGauge = metrics.MustRegisterGaugeVec(subSystem,
		"binary_output_state",
		"Commanded state of binary output (0=OFF, 1=ON)",
		"id")

	// Roller shutter metrics
	rollerShutterMovesTotal = metrics.MustRegisterCounterVec(subSystem,
		"roller_shutter_moves_total",
		"Number of times a roller shutter started moving",
		"id", "direction")
	rollerShutterPositionGauge = metrics.MustRegisterGaugeVec(subSystem,
		"roller_shutter_position",
		"Estimated position of roller shutter (percent open)",
		"id")

	// Sensor metrics
	sensorStateGauge = metrics.MustRegisterGaugeVec(subSystem,
		"sensor_state",
		"Actual state of sensor (0=inactive, 1=active)",
		"id")
	numericSensorValueGauge = metrics.MustRegisterGaugeVec(subSystem,
		"numeric_sensor_value",
		"Last reading of numeric sensor",
		"id")
	eventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"events_total",
		"Number of events emitted by sensors",
		"id", "kind")

	// Status metrics
	statusesDroppedTotal = metrics.MustRegisterCounter(subSystem,
		"statuses_dropped_total",
		"Number of status updates dropped because the queue was full")
	statusSinkErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"status_sink_errors_total",
		"Number of status updates the sink failed to publish")
)
