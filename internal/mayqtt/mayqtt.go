// Copyright 2016 Michael Stapelberg and contributors
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

// Package mayqtt implements an MQTT client which receives scan requests from
// scanpipe/cmd/scan and publishes status to scanpipe/ui/status. Everything
// is best-effort: without a broker, all calls are no-ops.
package mayqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/net/trace"
)

const (
	StatusTopic = "scanpipe/ui/status"
	ScanTopic   = "scanpipe/cmd/scan"
)

// ScanRequest is the payload of a message on ScanTopic. Empty fields keep
// the values given on the command line.
type ScanRequest struct {
	Profile string `json:"profile"`
	Out     string `json:"out"`
}

type PublishRequest struct {
	Topic    string
	Qos      byte
	Retained bool
	Payload  interface{}
}

// publisher is the part of mqtt.Client used for publishing.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Client publishes status messages and collects scan requests.
type Client struct {
	publish   chan PublishRequest
	requests  chan ScanRequest
	done      chan struct{}
	closeOnce sync.Once
	mqtt      mqtt.Client // nil when not connected to a broker

	mu         sync.Mutex
	lastStatus string
}

func parseScanRequest(payload []byte) (ScanRequest, error) {
	var sr ScanRequest
	if len(payload) == 0 {
		return sr, nil
	}
	if err := json.Unmarshal(payload, &sr); err != nil {
		return sr, fmt.Errorf("unmarshaling scan request: %w", err)
	}
	return sr, nil
}

func newClient() *Client {
	return &Client{
		publish:  make(chan PublishRequest, 16),
		requests: make(chan ScanRequest, 1),
		done:     make(chan struct{}),
	}
}

// Dial connects to broker (e.g. tcp://dr.lan:1883). An empty broker returns
// a Client whose methods do nothing.
func Dial(broker, clientID string) (*Client, error) {
	if broker == "" {
		return &Client{}, nil
	}
	c := newClient()
	tr := trace.New("MQTT", "Loop")

	tr.LazyPrintf("Connecting to MQTT broker %s", broker)
	opts := mqtt.NewClientOptions().AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetConnectRetry(true)
	opts.OnConnect = func(mc mqtt.Client) {
		tr.LazyPrintf("OnConnect, subscribing to %s", ScanTopic)
		token := mc.Subscribe(
			ScanTopic,
			0, /* qos */
			func(_ mqtt.Client, m mqtt.Message) {
				tr.LazyPrintf("message on topic %s: %q", m.Topic(), string(m.Payload()))
				sr, err := parseScanRequest(m.Payload())
				if err != nil {
					log.Print(err)
					return
				}
				select {
				case c.requests <- sr:
				default:
					// Channel full, scan request already pending; drop
				}
			})
		if token.Wait() && token.Error() != nil {
			tr.LazyPrintf("subscription failed! %v", token.Error())
		}
	}
	c.mqtt = mqtt.NewClient(opts)
	if token := c.mqtt.Connect(); token.Wait() && token.Error() != nil {
		tr.Finish()
		return nil, fmt.Errorf("MQTT connection failed: %v", token.Error())
	}
	tr.LazyPrintf("Connected to MQTT broker %s", broker)
	go c.loop(tr, c.mqtt)
	return c, nil
}

func (c *Client) loop(tr trace.Trace, p publisher) {
	defer close(c.done)
	defer tr.Finish()
	for r := range c.publish {
		tr.LazyPrintf("publishing on topic %s: %q", r.Topic, r.Payload)
		// discard Token, MQTT publishing is best-effort
		_ = p.Publish(r.Topic, r.Qos, r.Retained, r.Payload)
	}
}

// Requests returns the scan requests received on ScanTopic. Without a
// broker, the channel is nil.
func (c *Client) Requests() <-chan ScanRequest {
	return c.requests
}

// Publishf publishes a retained status message, unless it equals the
// previous one.
func (c *Client) Publishf(format string, args ...interface{}) {
	status := fmt.Sprintf(format, args...)
	c.mu.Lock()
	// Prevent duplicate messages if status has not changed
	if c.lastStatus == status {
		c.mu.Unlock()
		return
	}
	c.lastStatus = status
	c.mu.Unlock()
	if c.publish == nil {
		return
	}
	select {
	case c.publish <- PublishRequest{
		Topic:    StatusTopic,
		Retained: true,
		Payload:  []byte(status),
	}:
	default:
		// drop message if MQTT is not keeping up
	}
}

// Close publishes pending messages and disconnects. Publishf must not be
// called after Close.
func (c *Client) Close() error {
	if c.publish == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		close(c.publish)
		<-c.done
		if c.mqtt != nil {
			c.mqtt.Disconnect(250 /* ms */)
		}
	})
	return nil
}
