package configfx

import (
	"os"

	"github.com/spf13/pflag"
)

const (
	FlagConfig   = "config"
	FlagForce    = "force"
	FlagVerbose  = "verbose"
	FlagDebug    = "debug"
	FlagUsage    = "usage"
	FlagState    = "state"
	FlagMail     = "mail"
	FlagList     = "list"
	FlagSchedule = "schedule"
)

func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)

	// Application settings file, not a rotation policy
	fs.StringP(FlagConfig, "c", "", "Config file")

	fs.BoolP(FlagForce, "f", false, "Force file rotation")
	fs.BoolP(FlagVerbose, "v", false, "Display messages during rotation")
	fs.BoolP(FlagDebug, "d", false, "Don't do anything, just test and print debug messages (implies -v)")
	fs.BoolP(FlagUsage, "?", false, "Display brief usage message")
	fs.StringP(FlagState, "s", "", "Path of state file")
	fs.StringP(FlagMail, "m", "", "Command to send mail")
	fs.BoolP(FlagList, "l", false, "Print the rotation status and exit")
	fs.String(FlagSchedule, "", "Keep running and rotate on the given cron schedule")

	_ = fs.MarkDeprecated(FlagMail, "mail is delivered over SMTP, see the smtp* directives")

	fs.SortFlags = false

	return fs
}

func PFlags() (*pflag.FlagSet, error) {
	fs := NewFlagSet(os.Args[0])

	err := fs.Parse(os.Args[1:])
	if err != nil {
		return nil, err
	}

	return fs, nil
}
