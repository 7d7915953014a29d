package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// changedFlags collects the flags the user actually set on cmd, keyed by flag name,
// in the shape config.MergeCommandLineFlags expects. Unknown keys are ignored there.
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	fs := cmd.Flags()
	flags := make(map[string]interface{})
	fs.Visit(func(f *pflag.Flag) {
		var (
			v   interface{}
			err error
		)
		switch f.Value.Type() {
		case "stringSlice":
			v, err = fs.GetStringSlice(f.Name)
		case "int":
			v, err = fs.GetInt(f.Name)
		case "bool":
			v, err = fs.GetBool(f.Name)
		case "float64":
			v, err = fs.GetFloat64(f.Name)
		case "duration":
			v, err = fs.GetDuration(f.Name)
		default:
			v = f.Value.String()
		}
		if err == nil {
			flags[f.Name] = v
		}
	})
	return flags
}
