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

type setupContext struct {
	tempDir         string
	configPath      string
	originalContent string
	output          *bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing.
// Answers are matched by message prefix; unmatched prompts take their default.
type MockPrompter struct {
	answers   map[string]string
	provider  string
	overwrite bool
}

func (m *MockPrompter) answer(message string) (string, bool) {
	for prefix, a := range m.answers {
		if strings.HasPrefix(message, prefix) {
			return a, true
		}
	}
	return "", false
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if a, ok := m.answer(message); ok {
		return a, nil
	}
	return defaultValue, nil
}

func (m *MockPrompter) Password(message string) (string, error) {
	a, _ := m.answer(message)
	return a, nil
}

func (m *MockPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	if strings.HasPrefix(message, "Where should clips be uploaded") && m.provider != "" {
		return m.provider, nil
	}
	return defaultValue, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	return m.overwrite, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config", "config.yaml")
		testCtx.originalContent = ""
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

	ctx.Step(`^no config file exists for setup$`, testCtx.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, testCtx.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run setup choosing "([^"]*)" with answers:$`, testCtx.iRunSetupChoosingWithAnswers)
	ctx.Step(`^I run setup and decline to overwrite$`, testCtx.iRunSetupAndDeclineToOverwrite)
	ctx.Step(`^a config file should exist$`, testCtx.aConfigFileShouldExist)
	ctx.Step(`^the setup config should have tenor key "([^"]*)"$`, testCtx.theSetupConfigShouldHave("tenor.api_key"))
	ctx.Step(`^the setup config should have hosting provider "([^"]*)"$`, testCtx.theSetupConfigShouldHave("hosting.provider"))
	ctx.Step(`^the setup config should have imgur client id "([^"]*)"$`, testCtx.theSetupConfigShouldHave("imgur.client_id"))
	ctx.Step(`^the setup config should have drive folder "([^"]*)"$`, testCtx.theSetupConfigShouldHave("drive.folder_id"))
	ctx.Step(`^the setup config should have work directory "([^"]*)"$`, testCtx.theSetupConfigShouldHave("paths.work_directory"))
	ctx.Step(`^the setup should be cancelled$`, testCtx.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, testCtx.theExistingConfigShouldBeUnchanged)
	ctx.Step(`^setup should fail with "([^"]*)"$`, testCtx.setupShouldFailWith)
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `tenor:
  api_key: "original-tenor-key"
imgur:
  client_id: "original-imgur-id"
hosting:
  provider: imgur
stitch:
  strategy: flexible
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) iRunSetupChoosingWithAnswers(provider string, table *godog.Table) error {
	answers := make(map[string]string)
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		answers[row.Cells[0].Value] = row.Cells[1].Value
	}

	prompter := &MockPrompter{answers: answers, provider: provider, overwrite: true}
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, s.output)
	return nil
}

func (s *setupContext) iRunSetupAndDeclineToOverwrite() error {
	prompter := &MockPrompter{overwrite: false}
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, s.output)
	return nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if s.err != nil {
		return fmt.Errorf("setup failed: %v", s.err)
	}
	if _, err := os.Stat(s.configPath); err != nil {
		return fmt.Errorf("config file was not created: %w", err)
	}
	return nil
}

func (s *setupContext) theSetupConfigShouldHave(key string) func(string) error {
	return func(want string) error {
		cfg, err := config.Load(s.configPath)
		if err != nil {
			return err
		}
		got, err := config.NewConfigManager(cfg, s.configPath).Get(key)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("expected %s = %q, got %q", key, want, got)
		}
		return nil
	}
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if s.err != nil {
		return fmt.Errorf("expected cancellation, got error: %v", s.err)
	}
	if !strings.Contains(s.output.String(), "Setup cancelled.") {
		return fmt.Errorf("expected cancellation message, got:\n%s", s.output.String())
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return err
	}
	if string(data) != s.originalContent {
		return fmt.Errorf("config file was modified:\n%s", string(data))
	}
	return nil
}

func (s *setupContext) setupShouldFailWith(msg string) error {
	if s.err == nil {
		return fmt.Errorf("expected setup to fail with %q, got success", msg)
	}
	if !strings.Contains(s.err.Error(), msg) {
		return fmt.Errorf("expected error containing %q, got: %v", msg, s.err)
	}
	return nil
}
