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

package mayqtt

import (
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/net/trace"
)

type fakePublisher struct {
	published []PublishRequest
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, PublishRequest{
		Topic:    topic,
		Qos:      qos,
		Retained: retained,
		Payload:  payload,
	})
	return nil
}

func TestPublishf(t *testing.T) {
	c := newClient()
	var f fakePublisher
	go c.loop(trace.New("MQTT", "Test"), &f)

	c.Publishf("scanning: %d%%", 10)
	c.Publishf("scanning: %d%%", 10)
	c.Publishf("done")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if got, want := len(f.published), 2; got != want {
		t.Fatalf("%d messages published, want %d", got, want)
	}
	for i, want := range []string{"scanning: 10%", "done"} {
		r := f.published[i]
		if got := string(r.Payload.([]byte)); got != want {
			t.Errorf("message %d = %q, want %q", i, got, want)
		}
		if r.Topic != StatusTopic || !r.Retained {
			t.Errorf("message %d published on %q (retained=%v), want retained on %q", i, r.Topic, r.Retained, StatusTopic)
		}
	}
}

func TestWithoutBroker(t *testing.T) {
	c, err := Dial("", "scanpipe")
	if err != nil {
		t.Fatal(err)
	}
	c.Publishf("ignored")
	if c.Requests() != nil {
		t.Errorf("Requests() = %v, want nil", c.Requests())
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestParseScanRequest(t *testing.T) {
	for _, test := range []struct {
		payload string
		want    ScanRequest
		wantErr bool
	}{
		{"", ScanRequest{}, false},
		{`{"profile": "lide.yaml"}`, ScanRequest{Profile: "lide.yaml"}, false},
		{`{"profile": "a.yaml", "out": "/tmp/page.png"}`, ScanRequest{Profile: "a.yaml", Out: "/tmp/page.png"}, false},
		{`{`, ScanRequest{}, true},
	} {
		got, err := parseScanRequest([]byte(test.payload))
		if (err != nil) != test.wantErr {
			t.Errorf("parseScanRequest(%q) = %v, want error: %v", test.payload, err, test.wantErr)
			continue
		}
		if !test.wantErr && got != test.want {
			t.Errorf("parseScanRequest(%q) = %+v, want %+v", test.payload, got, test.want)
		}
	}
}
