package main

import (
	"errors"
	"fmt"

	"github.com/openmined/snipsync/internal/utils"
	"github.com/spf13/cobra"
)

var errConfigExists = errors.New("config file already exists")

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file from the current flags and defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("config")
			if path, err = utils.ResolvePath(path); err != nil {
				return err
			}

			overwrite, _ := cmd.Flags().GetBool("overwrite")
			if utils.FileExists(path) && !overwrite {
				return fmt.Errorf("%w: %s (use --overwrite to replace it)", errConfigExists, path)
			}

			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s config written to %s\n", green("✔"), cyan(path))
			return nil
		},
	}
	cmd.Flags().Bool("overwrite", false, "Replace an existing config file")
	return cmd
}
