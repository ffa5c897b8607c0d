//
// Copyright 2023 Bytedance Ltd. and/or its affiliates
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

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Lock     LockConfig     `yaml:"lock"`
	Redis    RedisConfig    `yaml:"redis"`
	EventBus EventBusConfig `yaml:"eventbus"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql or postgres
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type LockConfig struct {
	Type string        `yaml:"type"` // db, redis or mem
	TTL  time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EventBusConfig struct {
	Type     string `yaml:"type"`    // mem, db or kafka
	Service  string `yaml:"service"` // consumer name of the db bus
	Capacity int    `yaml:"capacity"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type LogConfig struct {
	Verbosity int `yaml:"verbosity"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:sales.db?cache=shared",
		},
		Lock:     LockConfig{Type: "db", TTL: 10 * time.Second},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		EventBus: EventBusConfig{Type: "mem", Service: "salesapi", Capacity: 1024},
		Kafka:    KafkaConfig{Topic: "sales.events", GroupID: "salesapi"},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

// Load starts from Default, applies the yaml file at path when path is not
// empty, then the SALES_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Addr, "SALES_HTTP_ADDR")
	setString(&c.Database.Driver, "SALES_DB_DRIVER")
	setString(&c.Database.DSN, "SALES_DB_DSN")
	setString(&c.Lock.Type, "SALES_LOCK")
	setString(&c.Redis.Addr, "SALES_REDIS_ADDR")
	setString(&c.Redis.Password, "SALES_REDIS_PASSWORD")
	setString(&c.EventBus.Type, "SALES_EVENTBUS")
	setString(&c.Kafka.Topic, "SALES_KAFKA_TOPIC")
	if v := os.Getenv("SALES_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SALES_LOG_VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SALES_LOG_VERBOSITY: %w", err)
		}
		c.Log.Verbosity = n
	}
	if v := os.Getenv("SALES_METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SALES_METRICS_ENABLED: %w", err)
		}
		c.Metrics.Enabled = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	switch c.Lock.Type {
	case "mem":
	case "db":
		if c.Lock.TTL > 0 && c.Lock.TTL <= time.Second {
			errs = append(errs, errors.New("db lock ttl must exceed the one second renew interval"))
		}
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis addr is required by the redis lock"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock type %q", c.Lock.Type))
	}
	if c.Lock.TTL <= 0 {
		errs = append(errs, errors.New("lock ttl must be positive"))
	}
	switch c.EventBus.Type {
	case "mem", "db":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka brokers and topic are required by the kafka event bus"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown event bus type %q", c.EventBus.Type))
	}
	return errors.Join(errs...)
}
