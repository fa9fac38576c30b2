package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechXTT/fluentdao/pkg/config"
	"github.com/TechXTT/fluentdao/pkg/dao"
)

func newColumnsCmd(cfg *config.Config) *cobra.Command {
	return newCatalogCmd(cfg, "columns [SCHEMA.]TABLE", "List the columns of a table in order",
		func(d *dao.DAO) func(context.Context, string) ([]string, error) { return d.ColumnsOf })
}

func newPrimaryKeyCmd(cfg *config.Config) *cobra.Command {
	return newCatalogCmd(cfg, "pk [SCHEMA.]TABLE", "List the primary key columns of a table in key order",
		func(d *dao.DAO) func(context.Context, string) ([]string, error) { return d.PrimaryKeyOf })
}

func newCatalogCmd(cfg *config.Config, use, short string, lookup func(*dao.DAO) func(context.Context, string) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			names, err := lookup(conn.DAO())(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("no columns found for %s", args[0])
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
