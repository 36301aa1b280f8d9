/*
   Command line entry points of the pagerank binary.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

var (
	appName = "pagerank"
	appSha  = ""
)

// Execute runs the command selected by the process arguments.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds the configuration shared by all sub-commands. Settings are
// resolved in order from flags, environment variables, the config file and
// flag defaults.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "PageRank over HTML pages kept in an object store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig(cmd)
		},
	}
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json or text)")

	rootCmd.AddCommand(
		c.newRankCmd(),
		c.newServeCmd(),
		c.newAppendLogCmd(),
	)
	return rootCmd
}

func (c *cli) initConfig(cmd *cobra.Command) error {
	for _, flags := range []*pflag.FlagSet{cmd.Flags(), cmd.InheritedFlags()} {
		if err := c.v.BindPFlags(flags); err != nil {
			return xerrors.Errorf("bind flags: %w", err)
		}
	}

	c.v.SetEnvPrefix("PAGERANK")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	// Environment variables of the original deployment.
	envBindings := [][]string{
		{"bucket", "BUCKET", "BUCKET_NAME"},
		{"prefix", "PAGES_PREFIX"},
		{"topic", "TOPIC"},
		{"project-id", "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT", "PROJECT_ID"},
		{"subscription", "SUBSCRIPTION_ID"},
		{"log-prefix", "LOG_PREFIX"},
		{"log-object", "LOG_OBJECT"},
	}
	for _, binding := range envBindings {
		if err := c.v.BindEnv(binding...); err != nil {
			return xerrors.Errorf("bind environment variables: %w", err)
		}
	}

	if cfgFile := c.v.GetString("config"); cfgFile != "" {
		c.v.SetConfigFile(cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return xerrors.Errorf("read config file: %w", err)
		}
	}
	return nil
}

// newLogger returns the root logger writing to w.
func (c *cli) newLogger(w io.Writer) (*logrus.Entry, error) {
	rootLogger := logrus.New()
	rootLogger.SetOutput(w)

	switch format := c.v.GetString("log-format"); format {
	case "json":
		rootLogger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{logrus.FieldKeyTime: "ts"},
		})
	case "text":
		rootLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, xerrors.Errorf("unsupported log format %q", format)
	}

	level, err := logrus.ParseLevel(c.v.GetString("log-level"))
	if err != nil {
		return nil, xerrors.Errorf("invalid log level: %w", err)
	}
	rootLogger.SetLevel(level)

	return rootLogger.WithFields(logrus.Fields{
		"app": appName,
		"sha": appSha,
	}), nil
}

// signalContext returns a context that gets cancelled once the process
// receives a termination signal.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}
