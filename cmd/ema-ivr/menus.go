package main

import (
	"encoding/json"
	"fmt"

	"github.com/koscakluka/ema-ivr/core/ivr"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var menusCmd = &cobra.Command{
	Use:   "menus",
	Short: "Inspect IVR menu files",
}

var menusSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the menu file format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := json.MarshalIndent(ivr.Schema(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var menusValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a menu file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		menus, err := ivr.LoadMenus(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d menus ok\n", args[0], len(menus.Menus))
		return nil
	},
}

var menusDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the built-in menus as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent(2)
		if err := encoder.Encode(ivr.DefaultMenus()); err != nil {
			return fmt.Errorf("failed to encode menus: %w", err)
		}
		return encoder.Close()
	},
}

func init() {
	menusCmd.AddCommand(menusSchemaCmd, menusValidateCmd, menusDefaultsCmd)
}
