package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/frame-guide-mcp/internal/config"
	"github.com/ironsheep/frame-guide-mcp/internal/logging"
	"github.com/ironsheep/frame-guide-mcp/internal/metrics"
	"github.com/ironsheep/frame-guide-mcp/internal/vehicleapi"
)

// app carries what every sub-command needs once the root has initialized.
type app struct {
	v          *viper.Viper
	configFile string
	envFile    string

	settings *config.Settings
	log      *logrus.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:          "frame-guide",
		Short:        "Vehicle framing guidance for photo capture",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(versionText())

	if err := a.setupFlags(rootCmd); err != nil {
		panic(err)
	}

	versionCmd := versionCommand()
	rootCmd.AddCommand(
		serveCommand(a),
		verifyCommand(a),
		detectCommand(a),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return a.initialize()
	}

	return rootCmd
}

// setupFlags defines the global flags and binds them into viper so they win
// over the config file and the environment.
func (a *app) setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a YAML config file (default ./frame-guide.yaml when present)")
	flags.StringVar(&a.envFile, "env-file", "", "Path to a dotenv file (default .env when present)")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this file, rotated by size")
	flags.String("locale", "en", "Guidance message language, e.g. en or zh")

	return bindFlags(a.v, flags, map[string]string{
		"log.level": "log-level",
		"log.file":  "log-file",
		"locale":    "locale",
	})
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// initialize loads the settings and builds the logger.
func (a *app) initialize() error {
	settings, err := config.Load(a.v, config.LoadOptions{
		ConfigFile: a.configFile,
		EnvFile:    a.envFile,
	})
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level: settings.Log.Level,
		File:  settings.Log.File,
	})
	if err != nil {
		return err
	}

	a.settings = settings
	a.log = logger
	return nil
}

// vehicleClient builds the remote detector from the settings. The client is
// returned even without credentials; it then reports ErrNotConfigured.
func (a *app) vehicleClient(m *metrics.Metrics) *vehicleapi.Client {
	api := a.settings.VehicleAPI
	return vehicleapi.New(vehicleapi.Config{
		APIKey:        api.APIKey,
		SecretKey:     api.SecretKey,
		BaseURL:       api.BaseURL,
		Timeout:       api.Timeout,
		RatePerSecond: api.RatePerSecond,
		Burst:         api.Burst,
		CacheTTL:      api.CacheTTL,
	},
		vehicleapi.WithLogger(a.log.WithField("component", "vehicleapi")),
		vehicleapi.WithMetrics(m),
	)
}
