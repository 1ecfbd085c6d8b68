package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and validate configuration",
		Long: `Show the effective configuration or check that it builds a rate model.

Configuration is read from --config, else ~/.vitaldyn/config.yaml when it
exists, on top of the built-in defaults. VITALDYN_* environment variables
override both.

Examples:
  vitaldyn config show                       # Effective configuration as YAML
  vitaldyn config validate --config s.yaml   # Check a scenario file`,
	}
	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigValidateCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration builds a rate model",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"valid": false,
						"error": err.Error(),
					})
				}
				return fmt.Errorf("invalid configuration: %w", err)
			}

			model, err := cfg.Model()
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"valid": true,
					"model": model.Describe(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", model.Describe())
			return nil
		},
	}
}
