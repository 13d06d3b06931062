package configfx

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options is the command line of a single logrotate invocation.
type Options struct {
	Force   bool
	Verbose bool
	Debug   bool
	Usage   bool
	List    bool

	Schedule string

	// Policy files or directories to process
	Configs []string
}

func OptionsProvider(flagSet *pflag.FlagSet, v *viper.Viper) *Options {
	debug := v.GetBool(FlagDebug)

	return &Options{
		Force:    v.GetBool(FlagForce),
		Verbose:  v.GetBool(FlagVerbose) || debug,
		Debug:    debug,
		Usage:    v.GetBool(FlagUsage),
		List:     v.GetBool(FlagList),
		Schedule: v.GetString(ConfigSchedule),
		Configs:  flagSet.Args(),
	}
}
