package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logLevel   string
	configFile string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ccdetect",
	Short: "Center-circle detection for camera calibration",
	Long: `ccdetect runs the center-circle detection pipeline on camera frames:
edge extraction, circle RANSAC on the ground plane, and midfield-line
refinement. Detections can be rendered as overlays and captured as
calibration measurements.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)

		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return err
			}
			slog.Info("Loaded configuration", "file", viper.ConfigFileUsed())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (YAML)")
}
