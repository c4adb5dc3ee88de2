// Copyright 2025 SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// RawOpts carries policy-specific options (overload predicate parameters,
// VM selection policy parameters) as an untyped JSON object; each plugin
// unmarshals it into its own options struct.
type RawOpts map[string]any

// Decode unmarshals the raw options into dst.
func (o RawOpts) Decode(dst any) error {
	b, err := json.Marshal(map[string]any(o))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	LevelStr string `json:"level"`
	Format   string `json:"format"`
}

type DBReconnectConfig struct {
	LivenessPingIntervalSeconds int `json:"livenessPingIntervalSeconds"`
	RetryIntervalSeconds        int `json:"retryIntervalSeconds"`
	MaxRetries                  int `json:"maxRetries"`
}

// DBConfig configures the history store's relational database connection.
type DBConfig struct {
	Driver    string            `json:"driver"` // "postgres" or "sqlite3"
	Host      string            `json:"host"`
	Port      int               `json:"port"`
	Database  string            `json:"database"`
	User      string            `json:"user"`
	Password  string            `json:"password"`
	Reconnect DBReconnectConfig `json:"reconnect"`
}

// MonitoringConfig configures the Prometheus metrics endpoint.
type MonitoringConfig struct {
	Labels map[string]string `json:"labels"`
	Port   int               `json:"port"`
}

// APIConfig configures an optional HTTP status/debug endpoint.
type APIConfig struct {
	Port int `json:"port"`
}

// KeystoneConfig configures Keystone authentication for the optional
// OpenStack fleet sync.
type KeystoneConfig struct {
	URL                 string `json:"url"`
	Availability        string `json:"availability"`
	OSUsername          string `json:"username"`
	OSPassword          string `json:"password"`
	OSProjectName       string `json:"projectName"`
	OSUserDomainName    string `json:"userDomainName"`
	OSProjectDomainName string `json:"projectDomainName"`
}

// PolicyConfig names a pluggable overload predicate or VM selection policy
// and carries its options.
type PolicyConfig struct {
	Name    string  `json:"name"`
	Options RawOpts `json:"options,omitempty"`
}

// ConsolidatorConfig configures the consolidation pass itself: the
// dimension weights, the overload/selection policies (CPU and IO each
// independently configurable), and the pass interval.
type ConsolidatorConfig struct {
	WMips float64 `json:"wMips"`
	WIops float64 `json:"wIops"`

	OverloadCPU PolicyConfig `json:"overloadCpu"`
	OverloadIO  PolicyConfig `json:"overloadIo"`

	SelectionCPU PolicyConfig `json:"selectionCpu"`
	SelectionIO  PolicyConfig `json:"selectionIo"`

	PassIntervalSeconds int `json:"passIntervalSeconds"`
}

// OpenStackConfig configures sourcing the fleet model from a live OpenStack
// deployment instead of a locally-constructed one. The sync is used only by
// the consolidate-openstack task; an empty URL skips the Keystone URL checks
// in Validate.
type OpenStackConfig struct {
	Keystone KeystoneConfig `json:"keystone"`
}

// Config is the configuration surface consumed by cmd/consolidator.
type Config interface {
	GetLoggingConfig() LoggingConfig
	GetDBConfig() DBConfig
	GetMonitoringConfig() MonitoringConfig
	GetAPIConfig() APIConfig
	GetConsolidatorConfig() ConsolidatorConfig
	GetOpenStackConfig() OpenStackConfig
	Validate() error
}

// SharedConfig is the concrete Config implementation loaded from JSON.
type SharedConfig struct {
	LoggingConfig      `json:"logging"`
	DBConfig           `json:"db"`
	MonitoringConfig   `json:"monitoring"`
	APIConfig          `json:"api"`
	ConsolidatorConfig `json:"consolidator"`
	OpenStackConfig    `json:"openstack"`
}

func (c *SharedConfig) GetLoggingConfig() LoggingConfig           { return c.LoggingConfig }
func (c *SharedConfig) GetDBConfig() DBConfig                     { return c.DBConfig }
func (c *SharedConfig) GetMonitoringConfig() MonitoringConfig     { return c.MonitoringConfig }
func (c *SharedConfig) GetAPIConfig() APIConfig                   { return c.APIConfig }
func (c *SharedConfig) GetConsolidatorConfig() ConsolidatorConfig { return c.ConsolidatorConfig }
func (c *SharedConfig) GetOpenStackConfig() OpenStackConfig       { return c.OpenStackConfig }

// Validate checks cross-field invariants the JSON schema itself cannot
// express: the dimension weights must sum to 1.0, and a configured Keystone
// URL must be a v3 URL without a trailing slash.
func (c *SharedConfig) Validate() error {
	const epsilon = 1e-9
	sum := c.ConsolidatorConfig.WMips + c.ConsolidatorConfig.WIops
	if sum < 1-epsilon || sum > 1+epsilon {
		return fmt.Errorf("consolidator.wMips + consolidator.wIops must sum to 1.0, got %f", sum)
	}
	url := c.OpenStackConfig.Keystone.URL
	if url != "" {
		if !strings.Contains(url, "/v3") {
			return fmt.Errorf("expected v3 Keystone URL, but got %s", url)
		}
		if strings.HasSuffix(url, "/") {
			return fmt.Errorf("openstack url %s should not end with a slash", url)
		}
	}
	return nil
}

// GetConfigOrDie reads and merges the two-file config layout this codebase
// family uses: a configmap-sourced base config and a secrets overlay whose
// values win.
//
//	/etc/config/conf.json
//	/etc/secrets/secrets.json
func GetConfigOrDie[C any]() C {
	cmConf, err := readRawConfig("/etc/config/conf.json")
	if err != nil {
		panic(err)
	}
	secretConf, err := readRawConfig("/etc/secrets/secrets.json")
	if err != nil {
		panic(err)
	}
	return newConfigFromMaps[C](cmConf, secretConf)
}

func newConfigFromMaps[C any](base, override map[string]any) C {
	merged := mergeMaps(base, override)
	mergedBytes, err := json.Marshal(merged)
	if err != nil {
		panic(err)
	}
	var c C
	if err := json.Unmarshal(mergedBytes, &c); err != nil {
		panic(err)
	}
	return c
}

func readRawConfig(filepath string) (map[string]any, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return readRawConfigFromBytes(bytes)
}

func readRawConfigFromBytes(data []byte) (map[string]any, error) {
	var conf map[string]any
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// mergeMaps recursively overrides dst with src (in-place).
func mergeMaps(dst, src map[string]any) map[string]any {
	result := dst
	for k, v := range src {
		if v == nil {
			continue
		}
		if dstVal, ok := dst[k]; ok {
			dstMap, dstIsMap := dstVal.(map[string]any)
			srcMap, srcIsMap := v.(map[string]any)
			if dstIsMap && srcIsMap {
				result[k] = mergeMaps(dstMap, srcMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}
