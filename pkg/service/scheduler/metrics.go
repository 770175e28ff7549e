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

package scheduler

import (
	"github.com/homeworker/HomeWorker/pkg/metrics"
)

const (
	subSystem = "scheduler"
)

var (
	// Total number of job executions
	jobsExecutedTotal = metrics.MustRegisterCounter(subSystem,
		"jobs_executed_total",
		"Total number of job executions")
	// Total number of job executions that returned an error
	jobErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"job_errors_total",
		"Total number of job executions that returned an error",
		"job")
	// Total number of job executions that panicked
	jobPanicsTotal = metrics.MustRegisterCounterVec(subSystem,
		"job_panics_total",
		"Total number of job executions that panicked",
		"job")
	// Number of pending jobs
	jobsPending = metrics.MustRegisterGauge(subSystem,
		"jobs_pending",
		"Number of pending jobs")
	// Delay between the deadline of a job and its execution
	jobLateness = metrics.MustRegisterHistogramVec(subSystem,
		"job_lateness_seconds",
		"Delay between the deadline of a job and its execution",
		"kind")
)
