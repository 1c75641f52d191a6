package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netsweep/netsweep/pkg/cli"
	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/util"
)

var (
	invRoles   string
	invSystems string
	invAll     bool
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List the loaded inventory and what a selector would match",
	Long: `List inventory rows with their transport, system type, and roles.

By default only enabled rows are shown; --all includes disabled ones. With
-r/--systems the listing shows exactly what an audit run would poll.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := devices
		if !invAll || invRoles != "" || invSystems != "" {
			selector := inventory.Selector{
				Include: util.SplitCommaSeparated(invRoles),
				Systems: util.SplitCommaSeparated(invSystems),
			}
			rows = selector.Apply(devices)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(rows)
		}

		if len(rows) == 0 {
			fmt.Println("No matching devices")
			return nil
		}

		table := cli.NewTable("SITE", "ADDRESS", "SYSTEM", "ACCESS", "ROLES", "ENABLED")
		for _, d := range rows {
			enabled := "yes"
			if !d.Enabled {
				enabled = "no"
			}
			table.Row(d.Identity(), d.Addr, d.System, string(d.Access),
				strings.Join(d.Roles, ","), cli.Status(enabled))
		}
		table.Flush()
		fmt.Printf("\n%d device(s)\n", len(rows))
		return nil
	},
}

func init() {
	inventoryCmd.Flags().StringVarP(&invRoles, "roles", "r", "", "Only rows carrying any of these roles")
	inventoryCmd.Flags().StringVar(&invSystems, "systems", "", "Only these system types")
	inventoryCmd.Flags().BoolVar(&invAll, "all", false, "Include disabled rows")
}
