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
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	InvalidArgumentError = errors.New("invalid argument")
	IsInvalidArgument    = isErrorFunc(InvalidArgumentError)
	ConflictError        = errors.New("conflicting rule options")
	IsConflict           = isErrorFunc(ConflictError)
	DuplicateIDError     = errors.New("duplicate ID")
	IsDuplicateID        = isErrorFunc(DuplicateIDError)
	NoSunriseError       = errors.New("no sunrise or sunset")
	IsNoSunrise          = isErrorFunc(NoSunriseError)
)

// isErrorFunc returns a function that checks if the given error (or
// one of the errors combined in it) is of the given type.
func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		for _, e := range multierr.Errors(err) {
			if e == typeOfError || errors.Cause(e) == typeOfError {
				return true
			}
		}
		return false
	}
}

// InvalidArgument creates a new invalid argument error.
func InvalidArgument(msg string, args ...interface{}) error {
	return errors.Wrapf(InvalidArgumentError, msg, args...)
}
