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

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/antst/mzhpo/internal/config"
	"github.com/antst/mzhpo/internal/logger"
	"github.com/antst/mzhpo/internal/safe_mqtt"
)

// PriceController caches the day-ahead curve published by the price
// integration (typically an ENTSO-E bridge publishing once per day).
// Implements PriceProvider; staleness judgment belongs to the Optimizer.
type PriceController struct {
	mu   sync.RWMutex
	cfg  *config.PriceConfig
	mqtt safe_mqtt.MqttClient
	data *PriceData
}

func NewPriceController(cfg *config.PriceConfig, mqttCfg *config.MQTTConfig) *PriceController {
	p := &PriceController{cfg: cfg}
	p.mqtt = safe_mqtt.InitMQTTClient(mqttCfg.URL, "mzhpo-prices-"+uuid.New().String())
	p.mqtt.SafeSubscribe(cfg.Topic, 1, p.priceUpdateHandler)
	return p
}

func (p *PriceController) priceUpdateHandler(client mqtt.Client, message mqtt.Message) {
	var pd PriceData
	if err := json.Unmarshal(message.Payload(), &pd); err != nil {
		logger.L().Errorf("Bad price payload on %s: %v", message.Topic(), err)
		return
	}
	if len(pd.Prices) == 0 {
		logger.L().Warnf("Empty price curve on %s, keeping previous", message.Topic())
		return
	}

	p.mu.Lock()
	p.data = &pd
	p.mu.Unlock()

	logger.L().Debugf(
		"Price curve updated: %d points, current %.3f at %s",
		len(pd.Prices), pd.Current.Price, pd.Current.Time,
	)
}

// GetPrices returns a copy of the cached curve; it fails only when no
// curve has been received at all.
func (p *PriceController) GetPrices(ctx context.Context) (*PriceData, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.data == nil {
		return nil, fmt.Errorf("no price data received on %s yet", p.cfg.Topic)
	}

	pd := PriceData{Current: p.data.Current}
	pd.Prices = append(pd.Prices, p.data.Prices...)
	return &pd, nil
}
