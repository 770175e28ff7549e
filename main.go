//    Copyright 2017-2026 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/homeworker/HomeWorker/model"
	"github.com/homeworker/HomeWorker/pkg/environment"
	"github.com/homeworker/HomeWorker/pkg/logging"
	"github.com/homeworker/HomeWorker/pkg/server"
	"github.com/homeworker/HomeWorker/pkg/service"
	"github.com/homeworker/HomeWorker/pkg/service/bridge"
	"github.com/homeworker/HomeWorker/pkg/service/mqtt"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/worker"
	"github.com/homeworker/HomeWorker/pkg/ui"
)

const (
	projectName       = "HomeWorker"
	defaultServerPort = 7129
	defaultSSHPort    = 7122
	defaultConfigPath = "/etc/homeworker/config.yaml"
	logsTopic         = "logs"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var bridgeType string
	var configPath string
	var serverHost string
	var serverPort int
	var sshPort int
	var hostKeyPath string
	var mqttConf mqtt.Config
	var piConf bridge.RaspberryPiConfig
	var interruptPin int
	var interruptActiveLow bool
	var rfPin int

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|rpi|virtual)")
	pflag.StringVarP(&configPath, "config", "c", defaultConfigPath, "Path of the configuration file")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.IntVar(&sshPort, "ssh-port", defaultSSHPort, "Port the SSH console will listen on (0 disables)")
	pflag.StringVar(&hostKeyPath, "ssh-host-key", ".ssh/id_ed25519", "Path of the SSH host key")
	pflag.StringVar(&mqttConf.BrokerAddress, "mqtt-broker", "", "Address of the MQTT broker (empty disables MQTT)")
	pflag.StringVar(&mqttConf.TopicPrefix, "mqtt-prefix", mqtt.DefaultTopicPrefix, "Prefix of all MQTT topics")
	pflag.StringVar(&mqttConf.UserName, "mqtt-user", "", "User name for the MQTT broker")
	pflag.StringVar(&mqttConf.Password, "mqtt-password", "", "Password for the MQTT broker")
	pflag.StringVar(&piConf.I2CBus, "i2c-bus", "/dev/i2c-1", "Device of the I2C bus")
	pflag.IntVar(&interruptPin, "interrupt-pin", 17, "GPIO pin of the interrupt line of the input boards (-1 disables)")
	pflag.BoolVar(&interruptActiveLow, "interrupt-active-low", true, "Interrupt line is asserted when low")
	pflag.IntVar(&rfPin, "rf-pin", 18, "GPIO pin of the 433MHz transmitter (-1 disables)")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	mqttWriter := logging.NewMQTTWriter(ctx)
	logger := zerolog.New(logging.NewMultiWriter(
		zerolog.ConsoleWriter{Out: os.Stderr},
		mqttWriter,
	)).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logger = logger.Level(level)

	conf, err := model.LoadConfig(configPath)
	if err != nil {
		Exitf("Failed to load configuration: %v\n", err)
	}

	if bridgeType == "auto" {
		bridgeType = environment.AutoDetectBridgeType(logger)
	}
	var br bridge.API
	switch bridgeType {
	case environment.BridgeTypeRaspberryPi:
		br, err = bridge.NewRaspberryPiBridge(piConf)
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi Bridge: %v\n", err)
		}
	case environment.BridgeTypeVirtual:
		br = bridge.NewVirtualBridge(true)
	default:
		Exitf("Unknown bridge type '%s' (auto|rpi|virtual)\n", bridgeType)
	}

	feed := ui.NewFeed()
	defer feed.Close()
	sinks := []objects.StatusSink{feed}
	var mqttSvc mqtt.Service
	if mqttConf.BrokerAddress != "" {
		mqttSvc, err = mqtt.NewService(mqttConf, mqtt.Dependencies{Log: logger})
		if err != nil {
			Exitf("Failed to initialize MQTT: %v\n", err)
		}
		sinks = append(sinks, mqttSvc)
		mqttWriter.SetDestination(logsTopic, mqttSvc)
		mqttWriter.Enable(true)
	}

	svc, err := service.NewService(service.Config{
		Worker: worker.Config{
			Config:             conf,
			InterruptPin:       interruptPin,
			InterruptActiveLow: interruptActiveLow,
			RFPin:              rfPin,
		},
	}, service.Dependencies{
		Logger:      logger,
		Bridge:      br,
		StatusSinks: sinks,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host:        serverHost,
		HTTPPort:    serverPort,
		SSHPort:     sshPort,
		HostKeyPath: hostKeyPath,
	}, logger, ui.NewConsole(svc, feed), svc, feed)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if mqttSvc != nil {
		g.Go(func() error { return mqttSvc.Run(ctx) })
	}
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %v\n", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
