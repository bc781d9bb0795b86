package main

import (
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/splice/dis"
)

func newDisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dis BODY",
		Short: "Disassemble a method body",
		Args:  cobra.ExactArgs(1),
		RunE:  disHandler,
	}
}

func disHandler(cmd *cobra.Command, args []string) error {
	body, err := loadBody(cmd, args[0])
	if err != nil {
		return err
	}
	return dis.Fprint(cmd.OutOrStdout(), body)
}
