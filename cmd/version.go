package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/ZFlareUI/DevMeet-AI-sub001/cmd.version=v1.2.3".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		short, _ := cmd.Flags().GetBool("short")
		fmt.Println(versionString(short))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolP("short", "s", false, "print the version only")
}

func versionString(short bool) string {
	v, revision := version, ""
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				revision = s.Value[:7]
			}
		}
	}

	if short {
		return v
	}
	if revision != "" {
		return fmt.Sprintf("%s %s (%s, %s)", app, v, revision, runtime.Version())
	}
	return fmt.Sprintf("%s %s (%s)", app, v, runtime.Version())
}
