// Package commands implements the pdfwm command line.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/benedoc-inc/pdfwm/cmd/pdfwm/ui"
	"github.com/benedoc-inc/pdfwm/internal/config"
	"github.com/benedoc-inc/pdfwm/internal/logging"
)

// defaultEnvFile is loaded when present and --env-file is not given
const defaultEnvFile = ".env"

// rootOptions carries the global flags and the state they produce
type rootOptions struct {
	cfgFile   string
	envFile   string
	verbose   bool
	noColor   bool
	logFormat string

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCommand builds the pdfwm command tree. Invoked without a
// subcommand it behaves like "pdfwm run".
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{log: zerolog.Nop()}
	run := &runOptions{}

	cmd := &cobra.Command{
		Use:   "pdfwm",
		Short: "Stamp size-matched watermarks onto PDF pages",
		Long: `pdfwm reads every PDF in the input directory, classifies each page as A4
or F4 in portrait or landscape, and draws the matching watermark image over
the whole page. Results are written under the same name to the output
directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, run)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file path (default $"+config.EnvPrefix+"CONFIG)")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file with "+config.EnvPrefix+"* overrides (default .env if present)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: console or json")

	run.register(cmd)
	cmd.AddCommand(newRunCommand(opts), newInspectCommand(opts), newVersionCommand())
	return cmd
}

// setup loads the environment file and configuration, then builds the logger
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if err := loadEnvFile(o.envFile); err != nil {
		return err
	}

	path := o.cfgFile
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	o.cfg = cfg

	ui.Init(o.noColor)
	o.log = logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cmd.ErrOrStderr(),
		NoColor: o.noColor || !ui.IsTerminal(os.Stderr),
	})
	o.log.Debug().Str("config", path).Msg("configuration loaded")
	return nil
}

// loadEnvFile loads an explicit dotenv file, or .env when it exists.
// Variables already set in the environment win.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
