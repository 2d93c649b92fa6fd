package server

import (
	"encoding/json"
	"math"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// fileConfig is the exact shape of the JSON config file.
type fileConfig struct {
	Port         int    `mapstructure:"port"`
	Key          string `mapstructure:"key"`
	Cert         string `mapstructure:"cert"`
	PasswordHash string `mapstructure:"passwordHash"`
}

var requiredFileKeys = map[string]bool{
	"port": true,
	"key":  true,
	"cert": true,
}

// LoadConfigFile reads and validates the JSON config file at path and layers
// the environment's tuning overrides on top of it.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	applyEnv(cfg)
	return cfg, nil
}

// ParseConfig validates data against the config file shape: the keys port,
// key and cert are required, passwordHash is optional, any other key or a
// value of the wrong type is an error.
func ParseConfig(data []byte) (*Config, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse json")
	}
	if raw == nil {
		return nil, errors.New("config must be a JSON object")
	}
	for key, value := range raw {
		if value == nil {
			return nil, errors.Errorf("field %q must not be null", key)
		}
	}

	var fc fileConfig
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &fc,
		Metadata:    &md,
		ErrorUnused: true,
		DecodeHook:  integralNumberHook,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	var missing []string
	for _, key := range md.Unset {
		if requiredFileKeys[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := fc.validate(); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	cfg.Port = fc.Port
	cfg.KeyFile = fc.Key
	cfg.CertFile = fc.Cert
	cfg.PasswordHash = fc.PasswordHash
	return &cfg, nil
}

func (fc fileConfig) validate() error {
	if fc.Port < 1 || fc.Port > math.MaxUint16 {
		return errors.Errorf("port %d out of range", fc.Port)
	}
	if (fc.Key == "") != (fc.Cert == "") {
		return errors.New("key and cert must be set together")
	}
	return nil
}

// integralNumberHook rejects JSON numbers with a fractional part headed for
// an integer field; mapstructure would otherwise truncate them.
func integralNumberHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 || to.Kind() != reflect.Int {
		return data, nil
	}
	f := data.(float64)
	if f != math.Trunc(f) {
		return nil, errors.Errorf("expected an integer, got %v", f)
	}
	return data, nil
}
