package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the taskping version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("taskping", rootCmd.Version)
	},
}
