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
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/antst/mzhpo/internal/config"
	"github.com/antst/mzhpo/internal/copmodel"
	"github.com/antst/mzhpo/internal/db"
	"github.com/antst/mzhpo/internal/logger"
	"github.com/antst/mzhpo/internal/pricing"
	"github.com/antst/mzhpo/internal/safe_mqtt"
	"github.com/antst/mzhpo/internal/thermal"
)

const (
	startupDelay = 10 * time.Second

	enabledKey         = "enabled"
	cheapPercentileKey = "cheap_percentile"
)

// Service owns the scheduling of the optimization engine: the hourly
// optimize cycle, the weekly calibration, and the MQTT control surface.
// Cycles are serialized here; the Optimizer itself assumes at most one
// in-flight run.
type Service struct {
	cfg        *config.Config
	queries    *db.Queries
	store      SettingsStore
	mqtt       safe_mqtt.MqttClient
	optimizer  *Optimizer
	calibrator *thermal.Calibrator
	analyzer   *pricing.Analyzer
	predictor  *copmodel.Predictor

	mu        sync.Mutex
	enabled   bool
	forceChan chan bool
}

func NewService() *Service {
	cfg := config.Get()

	s := &Service{
		cfg:       cfg,
		forceChan: make(chan bool, 2),
	}

	s.queries = db.OpenDatabase(cfg.DBFile)
	s.store = NewDBSettingsStore(s.queries)

	s.analyzer = pricing.NewAnalyzer()
	s.restoreCheapPercentile()

	constraints, err := NewConstraintManager(cfg.Zones)
	if err != nil {
		logger.L().Panicf("Invalid zone configuration: %v", err)
	}

	state := NewStateManager(logger.L())
	state.LoadFromSettings(s.store)

	model := thermal.LoadModel(s.store, logger.L())
	characteristics := newCharacteristicsFeed(cfg.Thermal, cfg.MQTTConfig)
	s.calibrator = thermal.NewCalibrator(model, characteristics, s.store, logger.L())

	s.predictor = copmodel.NewPredictor(s.store, logger.L())
	s.reloadCopSamples()
	normalizer := copmodel.NewNormalizer(s.store, logger.L())

	device := NewDeviceController(cfg.Device, cfg.MQTTConfig)
	prices := NewPriceController(cfg.Prices, cfg.MQTTConfig)

	s.optimizer = NewOptimizer(OptimizerDeps{
		Config:      cfg.Optimizer,
		Constraints: constraints,
		State:       state,
		Analyzer:    s.analyzer,
		Predictor:   s.predictor,
		Normalizer:  normalizer,
		Model:       model,
		Reader:      device,
		Actuator:    device,
		Prices:      prices,
		Store:       s.store,
		Learner:     loggingLearner{},
		Samples:     NewDBSampleRecorder(s.queries),
		Log:         logger.L(),
	})

	s.mqtt = safe_mqtt.InitMQTTClient(cfg.MQTTConfig.URL, "mzhpo-"+uuid.New().String())
	s.setupControlSubscriptions()
	s.setEnabled(s.readValueWithDefault(enabledKey, "true"))

	return s
}

func (s *Service) setupControlSubscriptions() {
	controlTopic := s.cfg.MQTTConfig.ControlTopic
	s.mqtt.SafeSubscribe(controlTopic+"/enable", 1, s.controlUpdateHandler)
	s.mqtt.SafeSubscribe(controlTopic+"/log_level", 1, s.controlUpdateHandler)
	s.mqtt.SafeSubscribe(controlTopic+"/cheap_percentile", 1, s.controlUpdateHandler)
	s.mqtt.SafeSubscribe(controlTopic+"/run_now", 1, s.controlUpdateHandler)
}

func (s *Service) controlUpdateHandler(client mqtt.Client, message mqtt.Message) {
	topic := message.Topic()[strings.LastIndex(message.Topic(), "/")+1:]
	payload := string(message.Payload())
	logger.L().Infof("Got MQTT control request: %v : %v", topic, payload)

	switch topic {
	case "enable":
		s.setEnabled(payload)
	case "log_level":
		if err := s.cfg.LogLevel.Set(payload); err != nil {
			logger.L().Errorf("Wrong log level `%v`", payload)
		} else {
			logger.SetLogLevel(s.cfg.LogLevel)
			logger.L().Infof("Updated loglevel to `%v`", s.cfg.LogLevel.String())
		}
	case "cheap_percentile":
		p, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			logger.L().Error(err)
			return
		}
		if err := s.analyzer.SetCheapPercentile(p); err != nil {
			logger.L().Errorf("Rejected cheap percentile: %v", err)
			return
		}
		s.writeValue(cheapPercentileKey, payload)
		logger.L().Infof("Updated cheap percentile to %v", p)
	case "run_now":
		select {
		case s.forceChan <- true:
		default:
		}
	}
}

func (s *Service) setEnabled(val string) {
	switch strings.ToLower(val) {
	case "true", "on":
		s.mqtt.SafePublish(s.cfg.MQTTConfig.ControlTopic+"/active", 1, true, "ON")
		s.mu.Lock()
		s.enabled = true
		s.mu.Unlock()
	case "false", "off":
		s.mqtt.SafePublish(s.cfg.MQTTConfig.ControlTopic+"/active", 1, true, "OFF")
		s.mu.Lock()
		s.enabled = false
		s.mu.Unlock()
	default:
		logger.L().Warnf("Invalid value for enabled: %v", val)
		return
	}
	s.writeValue(enabledKey, strconv.FormatBool(s.isEnabled()))
}

func (s *Service) isEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Service) restoreCheapPercentile() {
	raw, ok := s.store.Get(cheapPercentileKey)
	if !ok {
		if s.cfg.Optimizer != nil && s.cfg.Optimizer.CheapPercentile != nil {
			if err := s.analyzer.SetCheapPercentile(*s.cfg.Optimizer.CheapPercentile); err != nil {
				logger.L().Errorf("Configured cheap percentile rejected: %v", err)
			}
		}
		return
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.L().Warnf("Discarding persisted cheap percentile %q", raw)
		return
	}
	if err := s.analyzer.SetCheapPercentile(p); err != nil {
		logger.L().Warnf("Discarding persisted cheap percentile: %v", err)
	}
}

// reloadCopSamples replays the persisted observation log into the
// predictor so efficiency calibration survives restarts.
func (s *Service) reloadCopSamples() {
	samples, err := s.queries.ListCopSamples(context.Background(), copSampleRetention)
	if err != nil {
		logger.L().Warnf("Failed to load COP samples: %v", err)
		return
	}
	for _, smp := range samples {
		s.predictor.AddCalibrationPoint(smp.FlowTemp, smp.OutdoorTemp, smp.ActualCop)
	}
	if len(samples) > 0 {
		logger.L().Infof("Reloaded %d COP calibration samples", len(samples))
	}
}

// Run blocks, driving the hourly optimization and weekly calibration.
func (s *Service) Run() {
	if s.cfg.Once {
		s.runCycle()
		return
	}

	optimizeTicker := time.NewTicker(time.Duration(*s.cfg.Optimizer.OptimizeIntervalMin) * time.Minute)
	defer optimizeTicker.Stop()
	calibrateTicker := time.NewTicker(time.Duration(*s.cfg.Optimizer.CalibrateIntervalHrs) * time.Hour)
	defer calibrateTicker.Stop()

	// Let the retained MQTT topics land before the first cycle.
	startup := time.NewTimer(startupDelay)
	defer startup.Stop()

	for {
		select {
		case <-startup.C:
			s.runCycle()
		case <-s.forceChan:
			s.runCycle()
		case <-optimizeTicker.C:
			s.runCycle()
		case <-calibrateTicker.C:
			s.runCalibration()
		}
	}
}

func (s *Service) runCycle() {
	if !s.isEnabled() {
		logger.L().Info("Optimization disabled, skipping cycle")
		return
	}

	result, err := s.optimizer.RunCycle(context.Background())
	if err != nil {
		logger.L().Errorf("Optimization cycle failed: %v", err)
		return
	}

	logger.L().Infof(
		"Cycle %s: action=%s changed=%v success=%v: %s",
		result.CycleID, result.Action, result.Changed, result.Success, result.Reason,
	)
	s.mqtt.SafePublishJSON(s.cfg.MQTTConfig.ControlTopic+"/result", 1, false, result)
}

func (s *Service) runCalibration() {
	result := s.calibrator.RunCalibration()
	logger.L().Infof(
		"Calibration: method=%s K %.3f -> %.3f, S %.3f -> %.3f (%s)",
		result.Method, result.OldK, result.NewK, result.OldS, result.NewS, result.Analysis,
	)
	s.mqtt.SafePublishJSON(s.cfg.MQTTConfig.ControlTopic+"/calibration", 1, false, result)

	if s.predictor.SampleCount() >= copmodel.MinCalibrationSamples {
		if eff, err := s.predictor.Calibrate(); err == nil {
			logger.L().Infof("COP efficiency calibrated to %.3f", eff)
		}
	}
}

func (s *Service) writeValue(name, value string) {
	if err := s.store.Set(name, value); err != nil {
		logger.L().Error(err)
	}
}

func (s *Service) readValueWithDefault(name, defValue string) string {
	val, ok := s.store.Get(name)
	if !ok {
		return defValue
	}
	return val
}

// characteristicsFeed caches the thermal-learning output published over
// MQTT and exposes it as a thermal.CharacteristicsSource.
type characteristicsFeed struct {
	mu      sync.RWMutex
	cfg     *config.ThermalConfig
	mqtt    safe_mqtt.MqttClient
	latest  *thermal.Characteristics
	updated time.Time
}

func newCharacteristicsFeed(cfg *config.ThermalConfig, mqttCfg *config.MQTTConfig) *characteristicsFeed {
	f := &characteristicsFeed{cfg: cfg}
	f.mqtt = safe_mqtt.InitMQTTClient(mqttCfg.URL, "mzhpo-thermal-"+uuid.New().String())
	f.mqtt.SafeSubscribe(cfg.CharacteristicsTopic, 1, f.updateHandler)
	return f
}

func (f *characteristicsFeed) updateHandler(client mqtt.Client, message mqtt.Message) {
	var ch thermal.Characteristics
	if err := json.Unmarshal(message.Payload(), &ch); err != nil {
		logger.L().Errorf("Bad thermal characteristics on %s: %v", message.Topic(), err)
		return
	}

	f.mu.Lock()
	f.latest = &ch
	f.updated = time.Now()
	f.mu.Unlock()

	logger.L().Debugf("Thermal characteristics updated, confidence %.2f", ch.ModelConfidence)
}

func (f *characteristicsFeed) FetchCharacteristics() (*thermal.Characteristics, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.latest == nil {
		return nil, fmt.Errorf("no thermal characteristics received on %s yet", f.cfg.CharacteristicsTopic)
	}
	maxAge := time.Duration(*f.cfg.MaxAgeHours) * time.Hour
	if age := time.Since(f.updated); age > maxAge {
		return nil, fmt.Errorf("thermal characteristics stale by %s", age.Round(time.Hour))
	}

	ch := *f.latest
	return &ch, nil
}
