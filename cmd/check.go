package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sambabib/versions-check/pkg/check"
	"github.com/sambabib/versions-check/pkg/config"
	"github.com/sambabib/versions-check/pkg/logger"
	"github.com/sambabib/versions-check/pkg/output"
	"github.com/sambabib/versions-check/pkg/project"
	"github.com/sambabib/versions-check/pkg/source"
)

// checkCmd represents the check subcommand
var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"analyze"},
	Short:   "List installed packages with newer allowed versions",
	Long: `Check reads composer.json/composer.lock (or package.json/package-lock.json),
asks the package sources for published versions and reports every package whose
constraint allows a newer version than the installed one.

Flags can also be set through VERSIONS_CHECK_* environment variables,
e.g. VERSIONS_CHECK_MINIMUM_STABILITY=stable.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	flags := checkCmd.Flags()
	flags.StringP("path", "p", ".", "Path to project directory to check")
	flags.StringP("format", "f", "text", "Output format: text, json or sarif")
	flags.StringP("output", "o", "", "Write the report to a file instead of stdout")
	flags.Bool("show-links", false, "Show package links and the packages requiring them")
	flags.Bool("prefer-lowest", false, "The project was installed with --prefer-lowest; skip the check")
	flags.String("minimum-stability", "", "Least stable release to consider (dev, alpha, beta, RC, stable)")
	flags.Bool("no-color", false, "Disable colored text output")
	flags.StringSlice("ignore", nil, "Package names or globs to leave out of the report")
	flags.Int("concurrency", config.DefaultConfig().Concurrency, "Concurrent registry requests")
	flags.String("registry-packagist", "", "Composer repository used instead of packagist.org")
	flags.String("registry-npm", "", "npm registry used instead of registry.npmjs.org")
}

// newViper layers VERSIONS_CHECK_* environment variables under the flags.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("VERSIONS_CHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return v, nil
}

func loadConfig(dir string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	return config.FindAndLoadConfig(dir)
}

func runCheck(cmd *cobra.Command, _ []string) (err error) {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}

	dir := v.GetString("path")
	proj, err := project.Load(dir)
	if err != nil {
		return err
	}
	logger.Debugf("Detected %s project at %s", proj.Ecosystem, proj.Dir)

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if cfg.Path() != "" {
		logger.Debugf("Using config file %s", cfg.Path())
	}
	if err := cfg.ApplyOverrides(v); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	opts := check.ResolveOptions(cfg, proj)
	opts.PreferLowest = v.GetBool("prefer-lowest")

	client := source.NewClient(source.WithUserAgent("versions-check/" + Version))
	if opts.Sources, err = check.BuildSources(cfg, proj, client); err != nil {
		return err
	}

	format := cfg.Output.Format
	if format == "" {
		format = "text"
	}

	var out io.Writer = cmd.OutOrStdout()
	if cfg.Output.File != "" {
		f, createErr := os.Create(cfg.Output.File)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer closeOutput(f, &err)
		out = f
	}
	if format == "text" && !v.GetBool("no-color") && isTerminal(out) {
		opts.Styles = output.ColorStyles()
	}

	checker, err := check.New(opts)
	if err != nil {
		return err
	}
	outcome, err := checker.Run(cmd.Context(), proj)
	if err != nil {
		return err
	}
	if outcome.Skipped {
		logger.Infof("Versions check skipped: %s", outcome.Reason)
		return nil
	}
	logger.Debugf("Circuit breakers: %v", client.BreakerStates())

	switch format {
	case "json":
		data, err := output.GenerateJSONReport(string(proj.Ecosystem), outcome.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal report to JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "sarif":
		data, err := output.GenerateSarifReport(outcome.Result, output.SarifOptions{
			Ecosystem:    string(proj.Ecosystem),
			ManifestPath: proj.ManifestPath,
			ToolVersion:  Version,
			Severity:     cfg.GetSeverityForUpdate,
		})
		if err != nil {
			return fmt.Errorf("failed to generate SARIF report: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	default:
		_, err = io.WriteString(out, outcome.Report)
		return err
	}
}

// closeOutput closes the report file and reports a failed close unless an
// earlier error is already being returned.
func closeOutput(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to write output file: %w", cerr)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
