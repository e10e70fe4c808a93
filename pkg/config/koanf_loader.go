// Package config loads search.Params with Koanf's layered providers, giving
// a caller environment > file > default precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sorgfresser/htps-go/internal/search"
)

// LoadParamsKoanf loads search.Params with precedence: environment
// variables > YAML config file > search.Default(). configPath may be empty
// to skip the file layer.
//
//	HTPS_EXPLORATION=2.5           -> exploration
//	HTPS_POLICY_TYPE=rpo           -> policy_type
//	HTPS_Q_VALUE_SOLVED=one        -> q_value_solved
func LoadParamsKoanf(configPath string) (search.Params, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return search.Params{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	err := k.Load(env.Provider("HTPS_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "HTPS_")
		s = strings.ToLower(s)
		return s
	}), nil)
	if err != nil {
		return search.Params{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	p := search.Default()
	if err := k.UnmarshalWithConf("", &p, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return search.Params{}, fmt.Errorf("params unmarshal failed: %w", err)
	}

	if err := p.Validate(); err != nil {
		return search.Params{}, err
	}

	return p, nil
}
