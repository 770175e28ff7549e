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

package worker

import (
	"sync"
	"time"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
)

const (
	activityFlashDuration = time.Millisecond * 50
)

// activityIndicator flashes the red LED on I/O activity.
type activityIndicator struct {
	bridge bridge.API

	mutex  sync.Mutex
	timer  *time.Timer
	closed bool
}

func newActivityIndicator(b bridge.API) *activityIndicator {
	return &activityIndicator{bridge: b}
}

// Flash turns the LED on and schedules it off again.
// Repeated calls extend the flash.
func (a *activityIndicator) Flash() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.closed || a.bridge == nil {
		return
	}
	if a.timer == nil {
		a.bridge.SetRedLED(true)
		a.timer = time.AfterFunc(activityFlashDuration, a.off)
	} else {
		a.timer.Reset(activityFlashDuration)
	}
}

func (a *activityIndicator) off() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.timer = nil
	if !a.closed {
		a.bridge.SetRedLED(false)
	}
}

// Close stops flashing and turns the LED off.
func (a *activityIndicator) Close() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if !a.closed && a.bridge != nil {
		a.bridge.SetRedLED(false)
	}
	a.closed = true
}
