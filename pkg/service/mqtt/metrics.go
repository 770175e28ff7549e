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

package mqtt

import (
	"github.com/homeworker/HomeWorker/pkg/metrics"
)

const (
	subSystem = "mqtt"
)

var (
	// Total number of messages published
	publishesTotal = metrics.MustRegisterCounter(subSystem,
		"publishes_total",
		"Total number of messages published")
	// Total number of failed publishes
	publishErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"publish_errors_total",
		"Total number of failed publishes")
	// Total number of statuses kept until the connection is restored
	statusesDeferredTotal = metrics.MustRegisterCounter(subSystem,
		"statuses_deferred_total",
		"Total number of statuses kept until the connection is restored")
	// Total number of failed connection attempts
	connectErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"connect_errors_total",
		"Total number of failed connection attempts")
	// Total number of lost connections
	connectionLostTotal = metrics.MustRegisterCounter(subSystem,
		"connection_lost_total",
		"Total number of lost connections")
)
