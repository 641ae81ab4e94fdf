package cmd

import (
	"fmt"

	"github.com/RyanBlaney/sonido-notes/config"
	"github.com/RyanBlaney/sonido-notes/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logJSON    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sonido-notes",
	Short: "Frame-level note state labelling",
	Long: `sonido-notes turns note annotations into per-frame state labels,
samples training windows from feature matrices, decodes recordings with an
exported frame classifier and scores predictions against reference labels.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "structured JSON logs on stderr")
}

func setupLogging() error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	if logJSON {
		logger, err := logging.NewZapLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logging.SetGlobalLogger(logger)
	} else {
		logging.SetGlobalLogger(logging.NewDefaultLogger())
	}
	logging.SetLevel(level)
	return nil
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
