package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	awsclient "github.com/younsl/lifecycled/pkg/aws"
	"github.com/younsl/lifecycled/pkg/formatter"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id>",
		Short: "Print the stored record of an instance with its phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			awsCfg, err := awsclient.LoadConfig(cmd.Context(), cfg.Region)
			if err != nil {
				return err
			}
			store := awsclient.NewRecordStoreFromConfig(awsCfg, cfg.InstanceTable)

			rec, found, err := store.Lookup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error reading %s from %s: %w", args[0], cfg.InstanceTable, err)
			}
			if !found {
				rec.InstanceID = args[0]
			}
			formatter.PrintRecord(cmd.OutOrStdout(), rec, found, time.Now())
			return nil
		},
	}
}
