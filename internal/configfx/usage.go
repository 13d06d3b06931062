package configfx

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// UsageRequested reports whether the invocation only asks for help: -? or
// no policy file at all (and no status listing).
func UsageRequested(flagSet *pflag.FlagSet) bool {
	usage, _ := flagSet.GetBool(FlagUsage)
	list, _ := flagSet.GetBool(FlagList)

	return usage || (flagSet.NArg() == 0 && !list)
}

func PrintUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [OPTION...] <configfile>...\n", flagSet.Name())
	fmt.Fprint(w, flagSet.FlagUsages())
}
