package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE:  versionHandler,
	}
}

func versionHandler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if strings.ToLower(viper.GetString("output")) == "json" {
		data, err := marshalJSON(map[string]string{
			"version": version,
			"commit":  commit,
			"date":    date,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	fmt.Fprintf(out, "%s (commit %s, built %s)\n", version, commit, date)
	return nil
}
