package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"ytaudio-bot/infrastructure/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput OutputWriter = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage the configuration",
	Long: `Show the effective configuration or manage the list of chats allowed to use the bot.

Examples:
  ytaudio-bot config show
  ytaudio-bot config allow list
  ytaudio-bot config allow add 123456789
  ytaudio-bot config allow remove 123456789`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	// Add subcommands
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAllowCmd)
	configAllowCmd.AddCommand(configAllowAddCmd)
	configAllowCmd.AddCommand(configAllowRemoveCmd)
	configAllowCmd.AddCommand(configAllowListCmd)
}

// --- SHOW command ---

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and environment overrides are applied.
Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	return RunConfigShowWithDependencies(cfg, DefaultOutput)
}

// RunConfigShowWithDependencies prints cfg as YAML with secrets masked
func RunConfigShowWithDependencies(cfg *config.Config, out OutputWriter) error {
	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// --- ALLOW commands ---

var configAllowCmd = &cobra.Command{
	Use:   "allow",
	Short: "Manage the chats allowed to use the bot",
	Long: `Manage the chat allow list. When the list is empty every chat may use the bot.

Examples:
  ytaudio-bot config allow list
  ytaudio-bot config allow add 123456789
  ytaudio-bot config allow remove 123456789`,
}

var configAllowAddCmd = &cobra.Command{
	Use:   "add <chat-id>",
	Short: "Allow a chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigAllowAdd,
}

var configAllowRemoveCmd = &cobra.Command{
	Use:   "remove <chat-id>",
	Short: "Remove a chat from the allow list",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigAllowRemove,
}

var configAllowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List allowed chats",
	Args:  cobra.NoArgs,
	RunE:  runConfigAllowList,
}

func runConfigAllowAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	return RunConfigAllowWithDependencies(cfg, configPath(), "add", args[0], DefaultOutput)
}

func runConfigAllowRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	return RunConfigAllowWithDependencies(cfg, configPath(), "remove", args[0], DefaultOutput)
}

func runConfigAllowList(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	return RunConfigAllowListWithDependencies(cfg, configPath(), DefaultOutput)
}

// loadFileConfig reads the config file alone. Commands that save the config
// must use it so secrets taken from the environment never reach the disk.
func loadFileConfig() (*config.Config, error) {
	return config.LoadOrDefault(configPath())
}

// RunConfigAllowWithDependencies adds or removes a chat ID and saves the config
func RunConfigAllowWithDependencies(cfg *config.Config, path, action, rawChatID string, out OutputWriter) error {
	chatID, err := strconv.ParseInt(rawChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: must be an integer", rawChatID)
	}

	mgr := config.NewConfigManager(cfg, path)

	switch action {
	case "add":
		if err := mgr.AllowChat(chatID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Allowed chat %d\n", chatID)

	case "remove":
		if err := mgr.DisallowChat(chatID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed chat %d\n", chatID)
		if len(mgr.ListAllowedChats()) == 0 {
			fmt.Fprintln(out, "Allow list is now empty: every chat may use the bot.")
		}

	default:
		return fmt.Errorf("unknown action %q. Use add or remove", action)
	}

	return nil
}

// RunConfigAllowListWithDependencies prints the allow list
func RunConfigAllowListWithDependencies(cfg *config.Config, path string, out OutputWriter) error {
	chats := config.NewConfigManager(cfg, path).ListAllowedChats()
	if len(chats) == 0 {
		fmt.Fprintln(out, "No chats configured; every chat may use the bot.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCHAT ID")
	for i, id := range chats {
		fmt.Fprintf(w, "%d\t%d\n", i+1, id)
	}
	return w.Flush()
}
