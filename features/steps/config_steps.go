//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ytaudio-bot/cmd"
	"ytaudio-bot/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	env        map[string]string
	cfg        *config.Config
	loadErr    error
}

var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config", "config.yaml")
		testCtx.env = make(map[string]string)
		testCtx.cfg = nil
		testCtx.loadErr = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a configuration file with:$`, testCtx.aConfigurationFileWith)
	ctx.Step(`^no configuration file exists$`, testCtx.noConfigurationFileExists)
	ctx.Step(`^the environment sets "([^"]*)" to "([^"]*)"$`, testCtx.theEnvironmentSetsTo)
	ctx.Step(`^I load the configuration$`, testCtx.iLoadTheConfiguration)
	ctx.Step(`^the configuration is valid$`, testCtx.theConfigurationIsValid)
	ctx.Step(`^the configuration is invalid because "([^"]*)" is missing$`, testCtx.theConfigurationIsInvalidBecauseIsMissing)
	ctx.Step(`^the bot token is "([^"]*)"$`, testCtx.theBotTokenIs)
	ctx.Step(`^the worker count is (\d+)$`, testCtx.theWorkerCountIs)
	ctx.Step(`^the queue size is (\d+)$`, testCtx.theQueueSizeIs)
	ctx.Step(`^the extraction timeout is "([^"]*)"$`, testCtx.theExtractionTimeoutIs)
	ctx.Step(`^I allow chat "([^"]*)"$`, testCtx.iAllowChat)
	ctx.Step(`^I remove chat "([^"]*)"$`, testCtx.iRemoveChat)
	ctx.Step(`^the saved allow list is "([^"]*)"$`, testCtx.theSavedAllowListIs)
}

func (c *configContext) aConfigurationFileWith(content *godog.DocString) error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.configPath, []byte(content.Content), 0600)
}

func (c *configContext) noConfigurationFileExists() error {
	// Only the directory exists so commands can save into it
	return os.MkdirAll(filepath.Dir(c.configPath), 0755)
}

func (c *configContext) theEnvironmentSetsTo(name, value string) error {
	c.env[name] = value
	return nil
}

func (c *configContext) lookupEnv(name string) (string, bool) {
	v, ok := c.env[name]
	return v, ok
}

func (c *configContext) load() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(c.lookupEnv)
	c.cfg = cfg
	return nil
}

func (c *configContext) iLoadTheConfiguration() error {
	if err := c.load(); err != nil {
		return err
	}
	c.loadErr = c.cfg.Validate()
	return nil
}

func (c *configContext) theConfigurationIsValid() error {
	if c.loadErr != nil {
		return fmt.Errorf("expected a valid configuration, got: %w", c.loadErr)
	}
	return nil
}

func (c *configContext) theConfigurationIsInvalidBecauseIsMissing(name string) error {
	if !errors.Is(c.loadErr, config.ErrMissingSecret) {
		return fmt.Errorf("expected a missing secret error, got: %v", c.loadErr)
	}
	if !strings.Contains(c.loadErr.Error(), name) {
		return fmt.Errorf("expected error to name %s, got: %v", name, c.loadErr)
	}
	return nil
}

func (c *configContext) theBotTokenIs(expected string) error {
	if c.cfg.Telegram.Token != expected {
		return fmt.Errorf("expected bot token %q, got %q", expected, c.cfg.Telegram.Token)
	}
	return nil
}

func (c *configContext) theWorkerCountIs(expected int) error {
	if c.cfg.Workers.Count != expected {
		return fmt.Errorf("expected %d workers, got %d", expected, c.cfg.Workers.Count)
	}
	return nil
}

func (c *configContext) theQueueSizeIs(expected int) error {
	if c.cfg.Workers.QueueSize != expected {
		return fmt.Errorf("expected queue size %d, got %d", expected, c.cfg.Workers.QueueSize)
	}
	return nil
}

func (c *configContext) theExtractionTimeoutIs(expected string) error {
	d, err := c.cfg.ExtractionTimeout()
	if err != nil {
		return err
	}
	if d.String() != expected {
		return fmt.Errorf("expected extraction timeout %s, got %s", expected, d)
	}
	return nil
}

func (c *configContext) iAllowChat(chatID string) error {
	if err := c.load(); err != nil {
		return err
	}
	return cmd.RunConfigAllowWithDependencies(c.cfg, c.configPath, "add", chatID, io.Discard)
}

func (c *configContext) iRemoveChat(chatID string) error {
	if err := c.load(); err != nil {
		return err
	}
	return cmd.RunConfigAllowWithDependencies(c.cfg, c.configPath, "remove", chatID, io.Discard)
}

func (c *configContext) theSavedAllowListIs(expected string) error {
	saved, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	var got []string
	for _, id := range saved.Telegram.AllowedChats {
		got = append(got, strconv.FormatInt(id, 10))
	}
	if strings.Join(got, ",") != expected {
		return fmt.Errorf("expected allow list %q, got %q", expected, strings.Join(got, ","))
	}
	return nil
}
