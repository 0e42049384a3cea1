// Package config loads exporter defaults from the workdir config file and
// the environment.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the defaults applied when the corresponding command line
// options are not set.
type Config struct {
	Credentials string `mapstructure:"credentials"`
	Share       string `mapstructure:"share"`

	Export struct {
		GroupDelimiter        string `mapstructure:"group_delimiter"`
		SplitSelectMultiples  bool   `mapstructure:"split_select_multiples"`
		BinarySelectMultiples bool   `mapstructure:"binary_select_multiples"`
		Flatten               bool   `mapstructure:"flatten"`
		XLSForm               bool   `mapstructure:"xlsform"`
	} `mapstructure:"export"`
}

// Load reads <workdir>/config.yaml, applying defaults and SHEETS_* environment
// overrides. A missing config file is not an error.
func Load(workdir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(workdir)

	// every key needs a default so that AutomaticEnv picks it up
	v.SetDefault("credentials", "")
	v.SetDefault("share", "")
	v.SetDefault("export.group_delimiter", "/")
	v.SetDefault("export.split_select_multiples", false)
	v.SetDefault("export.binary_select_multiples", false)
	v.SetDefault("export.flatten", false)
	v.SetDefault("export.xlsform", true)

	v.SetEnvPrefix("SHEETS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
