/*
 * Copyright (c) 2025. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZHPO project.
 *
 * MZHPO is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/antst/mzhpo/internal/config"
	"github.com/antst/mzhpo/internal/logger"
	"github.com/antst/mzhpo/internal/safe_mqtt"
)

// DeviceController is the MQTT adapter for the heat pump: it caches the
// retained telemetry document and publishes actuation commands. Implements
// DeviceReader and DeviceActuator.
type DeviceController struct {
	mu      sync.RWMutex
	cfg     *config.DeviceConfig
	mqtt    safe_mqtt.MqttClient
	state   *DeviceState
	updated time.Time
}

func NewDeviceController(cfg *config.DeviceConfig, mqttCfg *config.MQTTConfig) *DeviceController {
	d := &DeviceController{cfg: cfg}
	d.mqtt = safe_mqtt.InitMQTTClient(mqttCfg.URL, "mzhpo-device-"+uuid.New().String())
	d.mqtt.SafeSubscribe(cfg.StateTopic, 1, d.stateUpdateHandler)
	return d
}

func (d *DeviceController) stateUpdateHandler(client mqtt.Client, message mqtt.Message) {
	var ds DeviceState
	if err := json.Unmarshal(message.Payload(), &ds); err != nil {
		logger.L().Errorf("Bad device state on %s: %v", message.Topic(), err)
		return
	}

	mode, err := ParseOperationMode(ds.ModeRaw)
	if err != nil {
		logger.L().Warnf("Device state: %v, assuming room mode", err)
	}
	ds.Mode = mode

	if ds.Timestamp.IsZero() {
		ds.Timestamp = time.Now()
	}

	d.mu.Lock()
	d.state = &ds
	d.updated = time.Now()
	d.mu.Unlock()

	logger.L().Debugf(
		"Device state: room %.1fC (set %.1f), outdoor %.1fC, flow %.1fC, mode %s",
		ds.RoomTemp, ds.SetTemp, ds.OutdoorTemp, ds.FlowTemp, ds.Mode,
	)
}

// GetDeviceState returns a copy of the last telemetry snapshot. It fails
// when nothing has arrived yet or the snapshot has gone stale.
func (d *DeviceController) GetDeviceState(ctx context.Context) (*DeviceState, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state == nil {
		return nil, fmt.Errorf("no device state received on %s yet", d.cfg.StateTopic)
	}
	maxAge := time.Duration(*d.cfg.StateMaxAgeSec) * time.Second
	if age := time.Since(d.updated); age > maxAge {
		return nil, fmt.Errorf("device state stale by %s", age.Round(time.Second))
	}

	ds := *d.state
	return &ds, nil
}

func (d *DeviceController) publishTemp(topic string, tempC float64) error {
	token := d.mqtt.SafePublish(topic, 1, true, fmt.Sprintf("%.1f", tempC))
	if token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "publish to %s", topic)
	}
	return nil
}

func (d *DeviceController) SetZoneTemperature(ctx context.Context, zone ZoneID, tempC float64) error {
	topic := d.cfg.Zone1SetTopic
	if zone == Zone2 {
		topic = d.cfg.Zone2SetTopic
	}
	return d.publishTemp(topic, tempC)
}

func (d *DeviceController) SetFlowTemperature(ctx context.Context, tempC float64) error {
	return d.publishTemp(d.cfg.FlowSetTopic, tempC)
}

func (d *DeviceController) SetCurveShift(ctx context.Context, shift float64) error {
	token := d.mqtt.SafePublish(d.cfg.CurveSetTopic, 1, true, fmt.Sprintf("%+.0f", shift))
	if token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "publish to %s", d.cfg.CurveSetTopic)
	}
	return nil
}

func (d *DeviceController) SetTankTemperature(ctx context.Context, tempC float64) error {
	return d.publishTemp(d.cfg.TankSetTopic, tempC)
}
