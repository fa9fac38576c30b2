package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/TechXTT/fluentdao/pkg/config"
	"github.com/TechXTT/fluentdao/pkg/dao"
)

const paramHelp = `Parameters bind to the ? placeholders in order. NULL binds a null,
integers and UUIDs bind as such, @path binds the contents of a file as
binary and anything else binds as text.`

func newQueryCmd(cfg *config.Config) *cobra.Command {
	var (
		offset, limit int
		format        string
	)
	cmd := &cobra.Command{
		Use:   "query SQL [PARAM...]",
		Short: "Run a query and print its rows",
		Long: `Run a query and print its rows.

With --offset the total row count is computed as well.

` + paramHelp,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, closeAll, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			defer closeAll()

			conn, err := connect(cmd, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			d := conn.DAO()
			off, lim := bound(offset), bound(limit)
			total := dao.TotalUnknown
			if off != nil {
				if total, err = d.Count(cmd.Context(), args[0], params); err != nil {
					return err
				}
			}
			cols, rows, err := d.ExecuteColumns(cmd.Context(), d.Dialect().Paginate(args[0], off, lim), params)
			if err != nil {
				return err
			}
			if err := writeRows(cmd.OutOrStdout(), format, cols, rows); err != nil {
				return err
			}
			if total != dao.TotalUnknown {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d rows\n", len(rows), total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", -1, "skip this many rows and report the total count")
	cmd.Flags().IntVar(&limit, "limit", -1, "return at most this many rows")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: "+strings.Join(formats, ", "))
	return cmd
}

func newExecCmd(cfg *config.Config) *cobra.Command {
	var keys bool
	cmd := &cobra.Command{
		Use:   "exec SQL [PARAM...]",
		Short: "Run a statement and print the affected row count",
		Long: `Run a statement and print the affected row count.

With --keys the generated keys are printed instead.

` + paramHelp,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, closeAll, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			defer closeAll()

			conn, err := connect(cmd, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			return conn.Transactional().Invoke(cmd.Context(), func(ctx context.Context) error {
				if keys {
					rows, err := conn.DAO().ExecuteUpdate(ctx, args[0], params, true)
					if err != nil {
						return err
					}
					for _, r := range rows {
						for _, v := range r {
							fmt.Fprintln(cmd.OutOrStdout(), cell(v))
						}
					}
					return nil
				}
				n, err := conn.DAO().NativeExecute(ctx, args[0], params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows affected\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keys, "keys", false, "print generated keys")
	return cmd
}

func bound(n int) *int {
	if n < 0 {
		return nil
	}
	return dao.Bound(n)
}

// parseParams converts command line parameters to bind values. The returned
// func closes any files opened for @path parameters.
func parseParams(args []string) ([]any, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	params := make([]any, len(args))
	for i, a := range args {
		switch {
		case strings.EqualFold(a, "null"):
			params[i] = nil
		case strings.HasPrefix(a, "@"):
			f, err := os.Open(a[1:])
			if err != nil {
				closeAll()
				return nil, nil, errors.Wrapf(err, "parameter %d", i+1)
			}
			files = append(files, f)
			params[i] = f
		default:
			if n, err := strconv.ParseInt(a, 10, 64); err == nil {
				params[i] = n
			} else if id, err := uuid.Parse(a); err == nil && len(a) == 36 {
				params[i] = id
			} else {
				params[i] = a
			}
		}
	}
	return params, closeAll, nil
}
