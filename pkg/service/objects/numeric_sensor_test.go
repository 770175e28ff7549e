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
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRecorder struct {
	mutex    sync.Mutex
	statuses []Status
}

func (r *statusRecorder) PublishStatus(status Status) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) States() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	result := make([]string, 0, len(r.statuses))
	for _, s := range r.statuses {
		result = append(result, s.State)
	}
	return result
}

func TestNumericSensor(t *testing.T) {
	deps, _, clock := newTestDeps()
	rec := &statusRecorder{}
	deps.Statuses = rec
	s, err := NewNumericSensor(NumericSensorConfig{ID: "living-temp", Unit: "°C", MinDelta: 0.2}, deps)
	require.NoError(t, err)

	st := s.Status()
	assert.Equal(t, TypeNumericSensor, st.Type)
	assert.Equal(t, "unknown", st.State)
	assert.Nil(t, st.Value)
	_, known := s.Value()
	assert.False(t, known)

	clock.Add(time.Minute)
	require.NoError(t, s.SetValue(21.5))
	st = s.Status()
	assert.Equal(t, "21.5", st.State)
	require.NotNil(t, st.Value)
	assert.Equal(t, 21.5, *st.Value)
	assert.Equal(t, "°C", st.Unit)
	assert.Equal(t, epoch.Add(time.Minute), st.Since)

	// Within the minimum delta
	clock.Add(time.Minute)
	require.NoError(t, s.SetValue(21.6))
	v, known := s.Value()
	assert.True(t, known)
	assert.Equal(t, 21.5, v)
	assert.Equal(t, epoch.Add(time.Minute), s.Status().Since)

	require.NoError(t, s.SetValue(20))
	assert.Equal(t, []string{"21.5", "20"}, rec.States())

	assert.True(t, IsInvalidArgument(s.SetValue(math.NaN())))
	assert.True(t, IsInvalidArgument(s.SetValue(math.Inf(1))))
	v, _ = s.Value()
	assert.Equal(t, 20.0, v)
}

func TestNumericSensorInvalidConfig(t *testing.T) {
	deps, _, _ := newTestDeps()
	_, err := NewNumericSensor(NumericSensorConfig{}, deps)
	assert.True(t, IsInvalidArgument(err))
	_, err = NewNumericSensor(NumericSensorConfig{ID: "x", MinDelta: -1}, deps)
	assert.True(t, IsInvalidArgument(err))
}
