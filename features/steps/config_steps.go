//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"time-for/cmd"
	"time-for/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	output     *bytes.Buffer
	err        error
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
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a config file with tenor key "([^"]*)"$`, testCtx.aConfigFileWithTenorKey)
	ctx.Step(`^I run config set "([^"]*)" to "([^"]*)"$`, testCtx.iRunConfigSet)
	ctx.Step(`^I run config show$`, testCtx.iRunConfigShow)
	ctx.Step(`^I run config get "([^"]*)"$`, testCtx.iRunConfigGet)
	ctx.Step(`^the config command should succeed$`, testCtx.theConfigCommandShouldSucceed)
	ctx.Step(`^the config command should fail with "([^"]*)"$`, testCtx.theConfigCommandShouldFailWith)
	ctx.Step(`^the config error should mention "([^"]*)"$`, testCtx.theConfigErrorShouldMention)
	ctx.Step(`^the config output should contain "([^"]*)"$`, testCtx.theConfigOutputShouldContain)
	ctx.Step(`^the config output should not contain "([^"]*)"$`, testCtx.theConfigOutputShouldNotContain)
	ctx.Step(`^the saved config should have "([^"]*)" set to "([^"]*)"$`, testCtx.theSavedConfigShouldHave)
}

func (c *configContext) load() (*config.Config, error) {
	return config.Load(c.configPath)
}

func (c *configContext) aConfigFileWithTenorKey(key string) error {
	cfg := config.Default()
	cfg.Tenor.APIKey = key
	cfg.Imgur.ClientID = "imgur-client"
	return config.Save(cfg, c.configPath)
}

func (c *configContext) iRunConfigSet(key, value string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigSetWithDependencies(cfg, c.configPath, key, value, c.output)
	return nil
}

func (c *configContext) iRunConfigShow() error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigShowWithDependencies(cfg, c.configPath, c.output)
	return nil
}

func (c *configContext) iRunConfigGet(key string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigGetWithDependencies(cfg, c.configPath, key, c.output)
	return nil
}

func (c *configContext) theConfigCommandShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got error: %v", c.err)
	}
	return nil
}

func (c *configContext) theConfigCommandShouldFailWith(msg string) error {
	if c.err == nil {
		return fmt.Errorf("expected error containing %q, got success", msg)
	}
	if !strings.Contains(c.err.Error(), msg) {
		return fmt.Errorf("expected error containing %q, got: %v", msg, c.err)
	}
	return nil
}

func (c *configContext) theConfigErrorShouldMention(text string) error {
	if c.err == nil || !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error to mention %q, got: %v", text, c.err)
	}
	return nil
}

func (c *configContext) theConfigOutputShouldContain(text string) error {
	if !strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}

func (c *configContext) theConfigOutputShouldNotContain(text string) error {
	if strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output not to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}

func (c *configContext) theSavedConfigShouldHave(key, want string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	got, err := config.NewConfigManager(cfg, c.configPath).Get(key)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %s = %q, got %q", key, want, got)
	}
	return nil
}
