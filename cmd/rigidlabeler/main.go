// Command rigidlabeler runs the labeling backend and offers offline tools for
// estimating, converting and previewing image pair transforms.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hytous/RigidLabeler/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rigidlabeler",
		Short:         "Image pair registration labeling backend",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.String() + "\n")

	root.AddCommand(
		newServeCmd(),
		newEstimateCmd(),
		newConvertCmd(),
		newCheckerboardCmd(),
		newSelfcheckCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
