package main

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nickyhof/deltactl"
	"github.com/nickyhof/deltactl/cmd/internal/settings"
	"github.com/nickyhof/deltactl/db"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type cli struct {
	settings *settings.Settings
	alias    string
	output   string
	limit    int
}

// newRootCmd returns the command tree and the settings it applies; the
// caller closes the settings once the command has finished.
func newRootCmd() (*cobra.Command, *settings.Settings) {
	c := &cli{
		settings: settings.New("deltactl.hcl", "warn"),
		alias:    db.DefaultAlias,
		output:   outputText,
	}

	root := &cobra.Command{
		Use:           "deltactl",
		Short:         "Inspect and query versioned tables and parquet files",
		Long:          "deltactl reads the transaction log of a versioned table (or a single parquet file) and prints its files, schema, version, metadata or history, or runs SQL against it.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.settings.Apply(cmd); err != nil {
				return err
			}
			if c.output != outputText && c.output != outputJSON {
				return fmt.Errorf("invalid output format %q: expected %s or %s", c.output, outputText, outputJSON)
			}
			return nil
		},
	}

	fs := root.PersistentFlags()
	c.settings.Register(fs)
	fs.StringVar(&c.alias, "alias", c.alias, "fallback table `name` for queries")
	c.settings.Bind(fs, "alias")
	fs.StringVar(&c.output, "output", c.output, "output format: text or json")
	c.settings.Bind(fs, "output")

	root.AddCommand(
		c.tableCmd(deltactl.CmdFiles, "List the data files of the current version"),
		c.historyCmd(),
		c.tableCmd(deltactl.CmdMetadata, "Print the table metadata"),
		c.tableCmd(deltactl.CmdSchema, "Print the column names, types and nullability"),
		c.tableCmd(deltactl.CmdVersion, "Print the current version number"),
		c.queryCmd(),
	)
	return root, c.settings
}

func (c *cli) tableCmd(name deltactl.CommandName, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(name) + " TABLE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, deltactl.Command{Name: name, Table: args[0]})
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history TABLE [LIMIT]",
		Short: "Print the commit history, newest first",
		Long:  "Print the commit history, newest first. A limit of 0 prints every commit.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := c.limit
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid limit %q: %w", args[1], err)
				}
				limit = n
			}
			return c.execute(cmd, deltactl.Command{Name: deltactl.CmdHistory, Table: args[0], Limit: limit})
		},
	}
	cmd.Flags().IntVar(&c.limit, "limit", 0, "maximum number of commits to print (0 for all)")
	return cmd
}

func (c *cli) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query TABLE SQL",
		Short: "Run SQL against the table",
		Long: "Run SQL against the table. The table is registered under its own name, " +
			"if it has one, and under the fallback alias (\"t\" unless --alias is set).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, deltactl.Command{Name: deltactl.CmdQuery, Table: args[0], SQL: args[1]})
		},
	}
}

func (c *cli) execute(cmd *cobra.Command, command deltactl.Command) error {
	if err := command.Validate(); err != nil {
		return err
	}

	instance, err := deltactl.Open(deltactl.Options{Storage: c.settings.Storage, Alias: c.alias})
	if err != nil {
		return err
	}
	defer instance.Close()

	log.WithFields(log.Fields{"command": command.Name, "table": command.Table}).Info("running")

	result, err := instance.Execute(cmd.Context(), command)
	if err != nil {
		return err
	}

	if c.output == outputJSON {
		return db.WriteJSON(cmd.OutOrStdout(), result)
	}
	return result.Display(cmd.OutOrStdout())
}
