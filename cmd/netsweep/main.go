// Netsweep - Access-Network Polling Tool
//
// A CLI for interrogating fleets of access-network head ends (MikroTik
// ETTP routers, GPON shelves, VDSL DSLAMs, DOCSIS CMTSes) and reducing
// each site to a uniform subscriber speed table.
//
//	netsweep -f inventory.csv audit -r firewall --mail
//	netsweep -f inventory.csv export --upload
//	netsweep -f inventory.csv inventory
//
// Credentials are never stored in the inventory; rows reference
// environment keys, loaded from the process environment or an env file
// (-e), with an interactive prompt as the fallback.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netsweep/netsweep/pkg/config"
	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/util"
	"github.com/netsweep/netsweep/pkg/version"
)

var (
	// Global flags
	inventoryPath string
	envPath       string
	configPath    string
	verbose       bool
	jsonOutput    bool

	// Global state, loaded by the root PersistentPreRunE
	cfg     *config.Config
	devices []inventory.Device
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "netsweep",
	Short:             "Access-Network Polling Tool",
	Version:           version.Info(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Netsweep interrogates fleets of access-network head ends over SSH and
Telnet and reduces each site to a uniform subscriber table.

  netsweep -f inventory.csv audit -r firewall
  netsweep -f inventory.csv export --upload`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("info")
		}
		if jsonOutput {
			util.SetJSONFormat()
		}

		if envPath != "" {
			keys, err := config.LoadEnvFile(envPath)
			if err != nil {
				return fmt.Errorf("loading env file: %w", err)
			}
			util.Debugf("loaded %d credentials from %s", len(keys), envPath)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if inventoryPath == "" {
			return fmt.Errorf("no inventory: use -f to point at the site CSV")
		}
		devices, err = inventory.Load(inventoryPath)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}
		util.Debugf("loaded %d inventory rows from %s", len(devices), inventoryPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "f", "", "Site inventory CSV")
	rootCmd.PersistentFlags().StringVarP(&envPath, "env", "e", "", "Credential env file (KEY=VALUE lines)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON log output")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(inventoryCmd)
}
