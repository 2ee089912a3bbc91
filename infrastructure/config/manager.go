package config

import (
	"fmt"
	"slices"
)

// ConfigManager provides operations on config entries that are saved back to disk
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// --- Allowed chats ---

// AllowChat adds a chat ID to the allow list
func (m *ConfigManager) AllowChat(chatID int64) error {
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}
	if slices.Contains(m.config.Telegram.AllowedChats, chatID) {
		return fmt.Errorf("%w: %d", ErrChatAlreadyAllowed, chatID)
	}

	m.config.Telegram.AllowedChats = append(m.config.Telegram.AllowedChats, chatID)
	slices.Sort(m.config.Telegram.AllowedChats)
	return Save(m.config, m.configPath)
}

// DisallowChat removes a chat ID from the allow list
func (m *ConfigManager) DisallowChat(chatID int64) error {
	idx := slices.Index(m.config.Telegram.AllowedChats, chatID)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrChatNotAllowed, chatID)
	}

	m.config.Telegram.AllowedChats = slices.Delete(m.config.Telegram.AllowedChats, idx, idx+1)
	return Save(m.config, m.configPath)
}

// ListAllowedChats returns the allow list; empty means every chat is allowed
func (m *ConfigManager) ListAllowedChats() []int64 {
	return slices.Clone(m.config.Telegram.AllowedChats)
}
