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
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/util"
)

const (
	// DefaultTopicPrefix is the prefix of all topics when none is configured.
	DefaultTopicPrefix = "homeworker"
	publishTimeout     = time.Millisecond * 500
	connectTimeout     = time.Second * 10
	disconnectQuiesce  = 250
	payloadOnline      = "online"
	payloadOffline     = "offline"
)

// Service publishes object statuses and log lines to an MQTT broker.
type Service interface {
	objects.StatusSink
	// Publish a payload on a topic relative to the prefix.
	// Strings and byte slices are sent as is, everything else as JSON.
	Publish(ctx context.Context, topic string, retained bool, payload interface{}) error
	// StatusTopic returns the topic of the status of the object with given ID.
	StatusTopic(id string) string
	// IsConnected returns true while the client is connected to the broker.
	IsConnected() bool
	// Run keeps the connection to the broker until the given context is canceled.
	Run(ctx context.Context) error
}

// Config of the MQTT service.
type Config struct {
	// Address of the broker (host:port, or a URL such as tcp://host:1883)
	BrokerAddress string
	ClientID      string
	UserName      string
	Password      string
	// Prefix of all topics
	TopicPrefix string
}

// Dependencies of the MQTT service.
type Dependencies struct {
	Log zerolog.Logger
	// Client to use, built from the config when nil
	Client mqttapi.Client
}

type service struct {
	Config
	log    zerolog.Logger
	client mqttapi.Client

	mutex    sync.Mutex
	statuses map[string]objects.Status
}

// NewService prepares a new MQTT service.
// The connection is made in Run.
func NewService(conf Config, deps Dependencies) (Service, error) {
	conf.TopicPrefix = strings.Trim(conf.TopicPrefix, "/")
	if conf.TopicPrefix == "" {
		conf.TopicPrefix = DefaultTopicPrefix
	}
	if conf.ClientID == "" {
		conf.ClientID = conf.TopicPrefix
	}
	s := &service{
		Config:   conf,
		log:      deps.Log.With().Str("component", "mqtt").Logger(),
		client:   deps.Client,
		statuses: make(map[string]objects.Status),
	}
	if s.client == nil {
		if conf.BrokerAddress == "" {
			return nil, errors.Wrap(InvalidArgumentError, "broker address is empty")
		}
		s.client = mqttapi.NewClient(s.clientOptions())
	}
	return s, nil
}

// clientOptions builds the options of the paho client.
func (s *service) clientOptions() *mqttapi.ClientOptions {
	broker := s.BrokerAddress
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts := mqttapi.NewClientOptions().
		AddBroker(broker).
		SetClientID(s.ClientID)
	if s.UserName != "" {
		opts.SetUsername(s.UserName)
		opts.SetPassword(s.Password)
	}
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(2 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetWill(s.availabilityTopic(), payloadOffline, 0, true)
	opts.SetOnConnectHandler(func(c mqttapi.Client) { s.onConnect() })
	opts.SetConnectionLostHandler(func(c mqttapi.Client, err error) {
		connectionLostTotal.Inc()
		s.log.Warn().Err(err).Msg("Lost connection to MQTT broker")
	})
	return opts
}

// StatusTopic returns the topic of the status of the object with given ID.
func (s *service) StatusTopic(id string) string {
	return s.topic(s.statusRelativeTopic(id))
}

func (s *service) availabilityTopic() string {
	return s.topic("availability")
}

func (s *service) topic(relative string) string {
	return s.TopicPrefix + "/" + strings.TrimPrefix(relative, "/")
}

// IsConnected returns true while the client is connected to the broker.
func (s *service) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Run keeps the connection to the broker until the given context is canceled.
func (s *service) Run(ctx context.Context) error {
	log := s.log.With().Str("broker", s.BrokerAddress).Logger()
	var backoff util.Backoff
	for {
		log.Debug().Msg("Connecting to MQTT broker...")
		token := s.client.Connect()
		if err := waitToken(ctx, token, connectTimeout); err == nil {
			break
		} else if ctx.Err() != nil {
			return nil
		} else {
			connectErrorsTotal.Inc()
			delay := backoff.Next()
			log.Warn().Err(err).Dur("retry-in", delay).Msg("Failed to connect to MQTT broker")
			if !util.Sleep(ctx, delay) {
				return nil
			}
		}
	}

	<-ctx.Done()
	if s.client.IsConnectionOpen() {
		token := s.client.Publish(s.availabilityTopic(), 0, true, payloadOffline)
		token.WaitTimeout(publishTimeout)
	}
	s.client.Disconnect(disconnectQuiesce)
	log.Debug().Msg("Disconnected from MQTT broker")
	return nil
}

// onConnect announces availability and republishes the last known
// status of every object, so a broker restart does not lose state.
func (s *service) onConnect() {
	s.log.Info().Msg("Connected to MQTT broker")
	s.client.Publish(s.availabilityTopic(), 0, true, payloadOnline)

	s.mutex.Lock()
	statuses := make([]objects.Status, 0, len(s.statuses))
	for _, st := range s.statuses {
		statuses = append(statuses, st)
	}
	s.mutex.Unlock()

	ctx := context.Background()
	for _, st := range statuses {
		if err := s.Publish(ctx, s.statusRelativeTopic(st.ID), true, st); err != nil {
			s.log.Warn().Err(err).Str("object-id", st.ID).Msg("Failed to republish status")
		}
	}
}

func (s *service) statusRelativeTopic(id string) string {
	return "status/" + id
}

// PublishStatus publishes the status of an object as a retained JSON message.
// While disconnected the status is only remembered, it is sent when the
// connection is restored.
func (s *service) PublishStatus(ctx context.Context, status objects.Status) error {
	s.mutex.Lock()
	s.statuses[status.ID] = status
	s.mutex.Unlock()

	if !s.client.IsConnectionOpen() {
		statusesDeferredTotal.Inc()
		return nil
	}
	return s.Publish(ctx, s.statusRelativeTopic(status.ID), true, status)
}

// Publish a payload on a topic relative to the prefix.
func (s *service) Publish(ctx context.Context, topic string, retained bool, payload interface{}) error {
	var data []byte
	switch v := payload.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return errors.Wrap(err, "failed to marshal payload")
		}
	}
	fullTopic := s.topic(topic)
	token := s.client.Publish(fullTopic, 0, retained, data)
	if err := waitToken(ctx, token, publishTimeout); err != nil {
		publishErrorsTotal.Inc()
		return errors.Wrapf(err, "failed to publish on '%s'", fullTopic)
	}
	publishesTotal.Inc()
	return nil
}

// waitToken waits until the token completes, the context expires or
// the given timeout passes when the context has no deadline.
func waitToken(ctx context.Context, token mqttapi.Token, timeout time.Duration) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return errors.Wrap(TimeoutError, ctx.Err().Error())
	}
}
