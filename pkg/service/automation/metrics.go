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

package automation

import (
	"github.com/homeworker/HomeWorker/pkg/metrics"
)

const (
	subSystem = "automation"
)

var (
	// Number of rules
	rulesTotal = metrics.MustRegisterGauge(subSystem,
		"rules_total",
		"Number of rules")
	// Number of triggers received per rule
	triggersTotal = metrics.MustRegisterCounterVec(subSystem,
		"triggers_total",
		"Number of triggers received",
		"rule")
	// Number of triggers dropped because a condition did not hold
	triggersSkippedTotal = metrics.MustRegisterCounterVec(subSystem,
		"triggers_skipped_total",
		"Number of triggers dropped because a condition did not hold",
		"rule")
	// Number of condition evaluation failures
	conditionErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"condition_errors_total",
		"Number of condition evaluation failures",
		"rule")
	// Number of actions applied
	actionsTotal = metrics.MustRegisterCounterVec(subSystem,
		"actions_total",
		"Number of actions applied",
		"rule", "action")
	// Number of periodic automation evaluations
	evaluationsTotal = metrics.MustRegisterCounterVec(subSystem,
		"evaluations_total",
		"Number of periodic automation evaluations",
		"id")
)
