package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"jsonsmoke/internal/codec"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		annotationSettings: "skip",
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jsonsmoke %s (build %s, %s)\n", version, buildStamp, runtime.Version())
		fmt.Printf("backends: %v\n", codec.Names())
	},
}
