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

import "github.com/pkg/errors"

var (
	InvalidArgumentError = errors.New("invalid argument")
	IsInvalidArgument    = isErrorFunc(InvalidArgumentError)
	NotFoundError        = errors.New("not found")
	IsNotFound           = isErrorFunc(NotFoundError)
	DuplicateIDError     = errors.New("duplicate object ID")
	IsDuplicateID        = isErrorFunc(DuplicateIDError)
	PositionUnknownError = errors.New("position unknown")
	IsPositionUnknown    = isErrorFunc(PositionUnknownError)
)

// InvalidArgument creates a new invalid argument error.
func InvalidArgument(msg string, args ...interface{}) error {
	return errors.Wrapf(InvalidArgumentError, msg, args...)
}

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
