package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var logger = zerolog.Nop()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "splice",
		Short:         "Inject try/finally regions into stack-machine method bodies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default is ./.splice.yaml)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.StringP("output", "o", "", "output format: text, json or yaml")
	flags.String("input-format", "", "input format: json or yaml (default: from the file extension)")
	for _, name := range []string{"config", "no-color", "log-level", "output", "input-format"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newWrapCmd(),
		newDisCmd(),
		newRunCmd(),
		newVerifyCmd(),
		newVersionCmd(),
	)
	return root
}

// initConfig reads the optional config file and the SPLICE_* environment,
// then applies the global flags.
func initConfig(stderr io.Writer) error {
	viper.SetEnvPrefix("splice")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	path := viper.GetString("config")
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(".splice")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	processGlobalFlags()
	return setupLogger(stderr)
}

func setupLogger(w io.Writer) error {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil {
		return err
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

func main() {
	if !isTerminalIO() {
		color.NoColor = true
	}
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}
