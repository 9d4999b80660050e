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

package config

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/antst/mzhpo/internal/logger"

	"github.com/pborman/getopt/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultMQTTURL      = "tcp://127.0.0.1:1883"
	defaultControlTopic = "mzhpo/control"
	defaultDBFile       = "~/.mzhpo.db"
	defaultConfigFile   = "config.yaml"
)

type MQTTConfig struct {
	URL          string `yaml:"url"`
	ControlTopic string `yaml:"control_topic"`
}

func NewMQTTConfig() *MQTTConfig {
	return &MQTTConfig{
		URL:          defaultMQTTURL,
		ControlTopic: defaultControlTopic,
	}
}

type Config struct {
	LogLevel   zapcore.Level    `yaml:"log_level"`
	MQTTConfig *MQTTConfig      `yaml:"mqtt"`
	DBFile     string           `yaml:"db_file"`
	Once       bool             `yaml:"-"`
	Device     *DeviceConfig    `yaml:"device"`
	Prices     *PriceConfig     `yaml:"prices"`
	Thermal    *ThermalConfig   `yaml:"thermal"`
	Optimizer  *OptimizerConfig `yaml:"optimizer"`
	Zones      *ZonesConfig     `yaml:"zones"`
}

func defConfig() *Config {
	return &Config{
		LogLevel:   zapcore.InfoLevel,
		MQTTConfig: NewMQTTConfig(),
		DBFile:     defaultDBFile,
		Device:     NewDeviceConfig(),
		Prices:     NewPriceConfig(),
		Thermal:    NewThermalConfig(),
		Optimizer:  NewOptimizerConfig(),
		Zones:      NewZonesConfig(),
	}
}

func prettyPrint(cfg *Config) {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		logger.L().Error("Failed to marshal config for pretty print", err)
		return
	}
	logger.L().Debugf("--- Config ---\n%s\n\n", string(d))
}

func (cfg *Config) FillDefaults() {
	if cfg.MQTTConfig == nil {
		cfg.MQTTConfig = NewMQTTConfig()
	}
	if cfg.Device == nil {
		cfg.Device = NewDeviceConfig()
	}
	if cfg.Prices == nil {
		cfg.Prices = NewPriceConfig()
	}
	if cfg.Thermal == nil {
		cfg.Thermal = NewThermalConfig()
	}
	if cfg.Optimizer == nil {
		cfg.Optimizer = NewOptimizerConfig()
	}
	if cfg.Zones == nil {
		cfg.Zones = NewZonesConfig()
	}
	cfg.Device.FillDefaults()
	cfg.Prices.FillDefaults()
	cfg.Thermal.FillDefaults()
	cfg.Optimizer.FillDefaults()
	cfg.Zones.FillDefaults()
}

func Get() *Config {
	cfg := defConfig()
	logLevel := getopt.StringLong("log-level", 'l', "", "log levels: debug, info, warn, error, dpanic, panic, fatal")
	configFile := getopt.StringLong("config", 'c', defaultConfigFile, "config file pathname")
	once := getopt.BoolLong("once", 'o', "run a single optimization cycle and exit")

	getopt.Parse()

	if err := readFile(cfg, *configFile); err != nil {
		log.Panicf("GetConfig: %v", err)
	}

	logger.L().Infof("Using config file `%v`", *configFile)
	dbFile := getopt.StringLong("db", 'd', cfg.DBFile, "DB file pathname")

	if *dbFile != "" {
		cfg.DBFile = *dbFile
	}
	logger.L().Infof("Using DB file `%v`", cfg.DBFile)

	cfg.Once = *once
	cfg.FillDefaults()

	if *logLevel != "" {
		if err := cfg.LogLevel.Set(*logLevel); err != nil {
			logger.L().Errorf("Wrong log level `%v`: %v", *logLevel, err)
		}
	}
	logger.SetLogLevel(cfg.LogLevel)

	prettyPrint(cfg)

	return cfg
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

func readFile(cfg *Config, configFileName string) error {
	if !fileExists(configFileName) {
		return nil
	}

	f, err := os.Open(configFileName)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	return nil
}

func GetPTR[T any](v T) *T {
	return &v
}
