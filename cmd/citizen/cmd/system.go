package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "Show the backend URLs considered, in priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates := current.resolver.Candidates()
		if output == "json" {
			return printValue(cmd.OutOrStdout(), candidates)
		}

		rows := make([][]string, len(candidates))
		for i, u := range candidates {
			marker := ""
			if i == 0 {
				marker = "*"
			}
			rows[i] = []string{marker, u}
		}
		printTable(cmd.OutOrStdout(), []string{"USED", "URL"}, rows)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		base := current.gateway.BaseURL()
		if !current.manager.CheckHealth(cmd.Context()) {
			return fmt.Errorf("backend %s is unreachable", base)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backend %s is reachable.\n", base)
		return nil
	},
}

var applicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "List service applications of the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := current.manager.Snapshot()
		if !snap.Session.Authenticated() {
			return fmt.Errorf("not signed in")
		}
		if snap.Session.DemoMode {
			return fmt.Errorf("applications are not available in demo mode")
		}

		data, err := current.gateway.Applications(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

func init() {
	rootCmd.AddCommand(endpointsCmd, healthCmd, applicationsCmd)
}
