package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"ytaudio-bot/infrastructure/config"
	"ytaudio-bot/infrastructure/logging"

	"github.com/spf13/cobra"
)

// OutputWriter abstracts where command output goes
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	cfgErr   error
)

var rootCmd = &cobra.Command{
	Use:   "ytaudio-bot",
	Short: "Telegram bot that replies with the audio of YouTube videos",
	Long: `ytaudio-bot is a Telegram bot that turns a YouTube link or a search
phrase into an MP3 file:

  - Resolve the link or search through the YouTube Data API
  - Extract the audio track with yt-dlp
  - Send the audio back to the chat

Secrets are read from the environment:
  BOT_TOKEN        Telegram bot token
  YOUTUBE_API_KEY  YouTube Data API v3 key

Example:
  BOT_TOKEN=... YOUTUBE_API_KEY=... ytaudio-bot serve`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func initConfig() {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}

	// A missing file is fine: defaults plus environment are enough to run
	cfg, cfgErr = config.LoadOrDefault(path)
	if cfgErr != nil {
		cfg = nil
		return
	}
	cfg.ApplyEnv(os.LookupEnv)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// configPath returns the file config commands read and write
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath
}

// newLogger builds the process logger from config and the --log-level flag
func newLogger(c *config.Config, w io.Writer) (*slog.Logger, error) {
	level := c.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(level, c.Logging.Format, w)
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	return logger, nil
}
