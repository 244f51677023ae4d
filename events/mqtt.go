// bed-monitor - record motion and bed occupancy from a live camera
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/TheCacophonyProject/bed-monitor/activity"
)

const publishTimeout = 2 * time.Second

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client-id"`
	Topic    string `yaml:"topic"`
}

func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "bed-monitor",
		Topic:    "bed-monitor",
	}
}

func (conf *MQTTConfig) Validate() error {
	if !conf.Enabled {
		return nil
	}
	if conf.Broker == "" {
		return errors.New("mqtt broker must be set")
	}
	if conf.Topic == "" {
		return errors.New("mqtt topic must be set")
	}
	return nil
}

// MQTTPublisher publishes events and activity rows as JSON.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

func NewMQTTPublisher(conf *MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(conf.Broker)
	opts.SetClientID(conf.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("mqtt broker %s not reachable yet, retrying in background", conf.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return newMQTTPublisher(client, conf.Topic), nil
}

func newMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

func (p *MQTTPublisher) Send(ev Event) error {
	return p.publish(p.topic+"/events/"+ev.Type, ev)
}

type activityMessage struct {
	Time       time.Time `json:"time"`
	Motion     bool      `json:"motion"`
	Detections int       `json:"detections"`
	Occupied   bool      `json:"bed_occupied"`
}

// Add publishes an activity row.
func (p *MQTTPublisher) Add(r activity.Row) error {
	return p.publish(p.topic+"/activity", activityMessage{
		Time:       r.Time,
		Motion:     r.Motion,
		Detections: r.Detections,
		Occupied:   r.Occupied,
	})
}

func (p *MQTTPublisher) publish(topic string, v interface{}) error {
	if !p.client.IsConnectionOpen() {
		return errors.New("mqtt not connected")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("mqtt publish timeout")
	}
	return token.Error()
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
