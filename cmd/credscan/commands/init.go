package commands

import (
	"fmt"

	"github.com/dyluth/credscan/internal/printer"
	"github.com/dyluth/credscan/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit  bool
	initFormat string
	initDir    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default credscan config file",
	Long: `Write a commented credscan.yaml (or credscan.toml) holding every
setting at its default value.

The file is picked up automatically when credscan runs from the same
directory. Use --force to replace an existing file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "Config format: yaml or toml")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write the config file into")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	format, err := scaffold.ParseFormat(initFormat)
	if err != nil {
		return printer.Error("invalid config format", err.Error(), []string{"Valid formats: yaml, toml"})
	}

	path, err := scaffold.Initialize(initDir, format, forceInit)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(printer.Out, path)
	return nil
}
