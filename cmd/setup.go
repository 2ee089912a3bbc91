package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ytaudio-bot/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Password(message string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Password(message string) (string, error) {
	result := ""
	prompt := &survey.Password{
		Message: message,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

Secrets may be left blank here and supplied at runtime through the
BOT_TOKEN and YOUTUBE_API_KEY environment variables instead.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, configPath())
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string) error {
	out := DefaultOutput

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to ytaudio-bot setup!")
	fmt.Fprintln(out)

	cfg := config.Default()

	if err := promptSecrets(prompter, cfg); err != nil {
		return err
	}
	if err := promptExtractor(prompter, cfg); err != nil {
		return err
	}
	if err := promptWorkers(prompter, cfg); err != nil {
		return err
	}
	if err := promptLogging(prompter, cfg); err != nil {
		return err
	}
	if err := promptAllowedChats(prompter, cfg); err != nil {
		return err
	}

	if err := cfg.ValidateSettings(); err != nil {
		return err
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Save configuration
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	if cfg.Telegram.Token == "" || cfg.YouTube.APIKey == "" {
		fmt.Fprintf(out, "Remember to export %s and %s before running serve.\n", config.EnvBotToken, config.EnvYouTubeAPIKey)
	}
	return nil
}

func promptSecrets(prompter Prompter, cfg *config.Config) error {
	token, err := prompter.Password(fmt.Sprintf("Telegram bot token (blank to use %s)?", config.EnvBotToken))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Telegram.Token = strings.TrimSpace(token)

	key, err := prompter.Password(fmt.Sprintf("YouTube Data API key (blank to use %s)?", config.EnvYouTubeAPIKey))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.YouTube.APIKey = strings.TrimSpace(key)

	return nil
}

func promptExtractor(prompter Prompter, cfg *config.Config) error {
	path, err := prompter.Input("Path to yt-dlp?", cfg.Extractor.Path)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if path != "" {
		cfg.Extractor.Path = path
	}

	format, err := prompter.Input("Audio format?", cfg.Extractor.AudioFormat)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if format != "" {
		cfg.Extractor.AudioFormat = format
	}

	timeout, err := prompter.Input("Maximum time per download (e.g. 10m)?", cfg.Extractor.Timeout)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if timeout != "" {
		cfg.Extractor.Timeout = timeout
	}
	if _, err := cfg.ExtractionTimeout(); err != nil {
		return err
	}

	return nil
}

func promptWorkers(prompter Prompter, cfg *config.Config) error {
	count, err := promptPositiveInt(prompter, "How many downloads may run at once?", cfg.Workers.Count)
	if err != nil {
		return err
	}
	cfg.Workers.Count = count

	queue, err := promptPositiveInt(prompter, "How many requests may wait in the queue?", cfg.Workers.QueueSize)
	if err != nil {
		return err
	}
	cfg.Workers.QueueSize = queue

	return nil
}

func promptPositiveInt(prompter Prompter, message string, defaultValue int) (int, error) {
	raw, err := prompter.Input(message, strconv.Itoa(defaultValue))
	if err != nil {
		return 0, fmt.Errorf("prompt cancelled")
	}
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q is not a positive number", raw)
	}
	return n, nil
}

func promptLogging(prompter Prompter, cfg *config.Config) error {
	level, err := prompter.Input("Log level (debug, info, warn, error)?", cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if level != "" {
		cfg.Logging.Level = level
	}

	format, err := prompter.Input("Log format (text, json)?", cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if format != "" {
		cfg.Logging.Format = format
	}

	address, err := prompter.Input("Metrics listen address (blank to disable)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Metrics.Address = strings.TrimSpace(address)

	return nil
}

func promptAllowedChats(prompter Prompter, cfg *config.Config) error {
	cfg.Telegram.AllowedChats = nil
	for {
		add, err := prompter.Confirm("Restrict the bot to a chat ID?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !add {
			break
		}

		raw, err := prompter.Input("  Chat ID:", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		chatID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || chatID == 0 {
			return fmt.Errorf("invalid chat id %q", raw)
		}
		cfg.Telegram.AllowedChats = append(cfg.Telegram.AllowedChats, chatID)
	}

	return nil
}
