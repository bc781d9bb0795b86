package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/splice/rewrite"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify BODY",
		Short: "Check the region structure of a method body",
		Args:  cobra.ExactArgs(1),
		RunE:  verifyHandler,
	}
}

type verifyReport struct {
	Method     string   `json:"method"`
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

func verifyHandler(cmd *cobra.Command, args []string) error {
	body, err := loadBody(cmd, args[0])
	if err != nil {
		return err
	}
	report := verifyReport{Method: body.Name, Valid: true}
	verr := rewrite.Verify(body)
	if verr != nil {
		report.Valid = false
		report.Violations = violationLines(verr)
	}

	out := cmd.OutOrStdout()
	switch format := strings.ToLower(viper.GetString("output")); format {
	case "", "text":
		if report.Valid {
			fmt.Fprintln(out, green("ok"))
		}
		for _, line := range report.Violations {
			fmt.Fprintln(out, red(line))
		}
	case "json":
		data, err := marshalJSON(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	if !report.Valid {
		return fmt.Errorf("%s: %d violation(s)", args[0], len(report.Violations))
	}
	return nil
}
