package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/attachvault/pkg/internal/storage/backend"
)

var (
	backendCmd = &cobra.Command{
		Use:   "backend",
		Short: "Payload backend related commands",
	}

	backendListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered payload backend types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered payload backends:")
			for _, t := range backend.GetRegisteredBackendTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}
)

// registerBackendCommands 注册载荷后端相关命令.
func registerBackendCommands() {
	rootCmd.AddCommand(backendCmd)
	backendCmd.AddCommand(backendListCmd)
}
