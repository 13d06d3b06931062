package configfx

import (
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix              = "logrotate"
	DefaultConfigDirectory = "logrotate"
	DefaultConfigFile      = "logrotate"
)

const (
	ConfigLogLevel          = "log.level"
	ConfigLogFormat         = "log.format"
	ConfigStatePath         = "state.path"
	ConfigStateDriver       = "state.driver"
	ConfigHookShell         = "hook.shell"
	ConfigHookTempDirectory = "hook.temp_directory"
	ConfigSchedule          = "schedule"
)

var (
	flagKeys = map[string]string{
		FlagConfig:      FlagConfig,
		FlagForce:       FlagForce,
		FlagVerbose:     FlagVerbose,
		FlagDebug:       FlagDebug,
		FlagUsage:       FlagUsage,
		FlagList:        FlagList,
		ConfigSchedule:  FlagSchedule,
		ConfigStatePath: FlagState,
	}

	defaultConfigPaths = []string{
		".",
		"./config",
		path.Join("/etc", DefaultConfigDirectory),
	}
)

func ViperProvider(logger *logrus.Logger, flagSet *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	// --state would shadow every state.* key if bound under its own name
	for key, flag := range flagKeys {
		err := v.BindPFlag(key, flagSet.Lookup(flag))
		if err != nil {
			return nil, err
		}
	}

	v.SetDefault(ConfigLogLevel, "warning")
	v.SetDefault(ConfigLogFormat, "text")
	v.SetDefault(ConfigStatePath, "/var/lib/logrotate/status")
	v.SetDefault(ConfigStateDriver, "file")
	v.SetDefault(ConfigHookShell, "/bin/sh")

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName(DefaultConfigFile)

	// Read config from config file
	if configFile := v.GetString(FlagConfig); configFile != "" {
		// If user do specify config file, then this file MUST exist and be valid
		// so missing file is a fatal error

		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		// If user does not specify config file, then we'll still try to find appropriate config,
		// but missing file is not an error

		for _, dir := range defaultConfigPaths {
			v.AddConfigPath(dir)
		}

		if err := v.ReadInConfig(); err != nil {
			logger.WithError(err).Debug("Couldn't read config file")
		}
	}

	return v, nil
}
