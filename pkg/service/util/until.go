// Copyright 2021 Ewout Prangsma
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

package util

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MinBackoff is the delay after the first failure.
	MinBackoff = time.Millisecond * 10
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff = time.Second * 5
)

// Backoff computes retry delays that grow by a factor 1.5
// from MinBackoff up to MaxBackoff.
type Backoff struct {
	delay time.Duration
}

// Next returns the delay to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	if b.delay == 0 {
		b.delay = MinBackoff
	} else {
		b.delay = time.Duration(float64(b.delay) * 1.5)
		if b.delay > MaxBackoff {
			b.delay = MaxBackoff
		}
	}
	return b.delay
}

// Reset the backoff after a successful attempt.
func (b *Backoff) Reset() {
	b.delay = 0
}

// Sleep waits for the given duration or until the context is canceled.
// Returns false when the context was canceled.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// UntilCanceled continues to call the given callback
// until the given context is canceled
func UntilCanceled(ctx context.Context, log zerolog.Logger, description string, cb func() error) error {
	var backoff Backoff
	for {
		if ctx.Err() != nil {
			// Context canceled
			return nil
		}
		delay := MinBackoff
		if err := cb(); err != nil {
			log.Warn().Err(err).Msgf("%s failed", description)
			delay = backoff.Next()
		} else {
			backoff.Reset()
		}
		if !Sleep(ctx, delay) {
			// Context canceled
			log.Info().Msgf("Stopping %s; context canceled", description)
			return nil
		}
	}
}
