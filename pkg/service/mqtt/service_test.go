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
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func completed(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type message struct {
	topic    string
	retained bool
	payload  string
}

// fakeClient implements the parts of the paho client used by the service.
type fakeClient struct {
	mqttapi.Client

	mutex        sync.Mutex
	connected    bool
	failConnects int
	connects     int
	stall        bool
	messages     []message
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected
}

func (c *fakeClient) Connect() mqttapi.Token {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connects++
	if c.failConnects > 0 {
		c.failConnects--
		return completed(errors.New("connection refused"))
	}
	c.connected = true
	return completed(nil)
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqttapi.Token {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.stall {
		return &fakeToken{done: make(chan struct{})}
	}
	var data string
	switch v := payload.(type) {
	case string:
		data = v
	case []byte:
		data = string(v)
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: data})
	return completed(nil)
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connected = false
	c.disconnected = true
}

func (c *fakeClient) Messages() []message {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]message(nil), c.messages...)
}

func (c *fakeClient) Connects() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connects
}

func newTestService(t *testing.T, client *fakeClient) *service {
	svc, err := NewService(Config{TopicPrefix: "/home/"}, Dependencies{Log: zerolog.Nop(), Client: client})
	require.NoError(t, err)
	return svc.(*service)
}

func TestNewServiceRequiresBroker(t *testing.T) {
	_, err := NewService(Config{}, Dependencies{Log: zerolog.Nop()})
	assert.True(t, IsInvalidArgument(err))

	svc := newTestService(t, &fakeClient{})
	assert.Equal(t, "home/status/lamp", svc.StatusTopic("lamp"))
	assert.Equal(t, "home", svc.ClientID)
}

func TestPublishStatus(t *testing.T) {
	client := &fakeClient{connected: true}
	svc := newTestService(t, client)
	pos := 40
	since := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.PublishStatus(context.Background(), objects.Status{
		ID:       "bedroom",
		Type:     objects.TypeRollerShutter,
		State:    "idle",
		Position: &pos,
		Since:    since,
	}))

	msgs := client.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "home/status/bedroom", msgs[0].topic)
	assert.True(t, msgs[0].retained)
	var status objects.Status
	require.NoError(t, json.Unmarshal([]byte(msgs[0].payload), &status))
	assert.Equal(t, "idle", status.State)
	require.NotNil(t, status.Position)
	assert.Equal(t, 40, *status.Position)
	assert.True(t, since.Equal(status.Since))
}

func TestStatusIsSentAfterConnect(t *testing.T) {
	client := &fakeClient{}
	svc := newTestService(t, client)
	ctx := context.Background()
	require.NoError(t, svc.PublishStatus(ctx, objects.Status{ID: "lamp", State: "on"}))
	require.NoError(t, svc.PublishStatus(ctx, objects.Status{ID: "lamp", State: "off"}))
	assert.Empty(t, client.Messages())

	client.Connect()
	svc.onConnect()
	msgs := client.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, message{topic: "home/availability", retained: true, payload: "online"}, msgs[0])
	assert.Equal(t, "home/status/lamp", msgs[1].topic)
	assert.Contains(t, msgs[1].payload, `"state":"off"`)
}

func TestPublishTimeout(t *testing.T) {
	client := &fakeClient{connected: true, stall: true}
	svc := newTestService(t, client)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*10)
	defer cancel()
	err := svc.Publish(ctx, "logs", false, "hello")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestRunRetriesConnect(t *testing.T) {
	client := &fakeClient{failConnects: 2}
	svc := newTestService(t, client)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, svc.IsConnected, time.Second, time.Millisecond)
	assert.Equal(t, 3, client.Connects())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	msgs := client.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, message{topic: "home/availability", retained: true, payload: "offline"}, msgs[len(msgs)-1])
	assert.False(t, svc.IsConnected())
}
