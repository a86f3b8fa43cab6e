package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"time-for/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Password(message string) (string, error)
	Select(message string, options []string, defaultValue string) (string, error)
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

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
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

var errPromptCancelled = errors.New("prompt cancelled")

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up the Tenor API key, the hosting
provider (Imgur or Google Drive) and where clips are built.

Keys can also be supplied through the TENOR_API_KEY and IMGUR_CLIENT_ID
environment variables or a .env file.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, os.Stdout)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out io.Writer) error {
	// Existing values become the defaults of each prompt
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return errPromptCancelled
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to time-for setup!")
	fmt.Fprintln(out)

	if err := promptTenor(prompter, cfg); err != nil {
		return err
	}

	if err := promptHosting(prompter, cfg); err != nil {
		return err
	}

	if err := promptWorkspace(prompter, cfg); err != nil {
		return err
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	return nil
}

func promptTenor(prompter Prompter, cfg *config.Config) error {
	message := "Tenor API key?"
	if cfg.Tenor.APIKey != "" {
		message = fmt.Sprintf("Tenor API key? (leave blank to keep %s)", config.Mask(cfg.Tenor.APIKey))
	}

	key, err := prompter.Password(message)
	if err != nil {
		return errPromptCancelled
	}
	if key = strings.TrimSpace(key); key != "" {
		cfg.Tenor.APIKey = key
	}
	if cfg.Tenor.APIKey == "" {
		return fmt.Errorf("tenor api key is required")
	}
	return nil
}

func promptHosting(prompter Prompter, cfg *config.Config) error {
	provider, err := prompter.Select("Where should clips be uploaded?",
		[]string{config.ProviderImgur, config.ProviderDrive}, cfg.Hosting.Provider)
	if err != nil {
		return errPromptCancelled
	}
	cfg.Hosting.Provider = provider

	if provider == config.ProviderImgur {
		message := "Imgur client ID?"
		if cfg.Imgur.ClientID != "" {
			message = fmt.Sprintf("Imgur client ID? (leave blank to keep %s)", config.Mask(cfg.Imgur.ClientID))
		}
		id, err := prompter.Password(message)
		if err != nil {
			return errPromptCancelled
		}
		if id = strings.TrimSpace(id); id != "" {
			cfg.Imgur.ClientID = id
		}
		if cfg.Imgur.ClientID == "" {
			return fmt.Errorf("imgur client id is required")
		}
		return nil
	}

	return promptDrive(prompter, cfg)
}

func promptDrive(prompter Prompter, cfg *config.Config) error {
	auth, err := prompter.Select("How should Google Drive authenticate?",
		[]string{config.DriveAuthOAuth, config.DriveAuthServiceAccount}, cfg.Drive.Auth)
	if err != nil {
		return errPromptCancelled
	}
	cfg.Drive.Auth = auth

	credentials, err := prompter.Input("Path to Google credentials file?", cfg.Drive.CredentialsFile)
	if err != nil {
		return errPromptCancelled
	}
	if credentials != "" {
		cfg.Drive.CredentialsFile = credentials
	}

	folder, err := prompter.Input("Google Drive folder ID for clips? (blank for My Drive)", cfg.Drive.FolderID)
	if err != nil {
		return errPromptCancelled
	}
	cfg.Drive.FolderID = strings.TrimSpace(folder)

	return nil
}

func promptWorkspace(prompter Prompter, cfg *config.Config) error {
	dir, err := prompter.Input("Where should clips be built? (blank for the temp directory)", cfg.Paths.WorkDirectory)
	if err != nil {
		return errPromptCancelled
	}
	cfg.Paths.WorkDirectory = strings.TrimSpace(dir)

	strategy, err := prompter.Select("How should clips be stitched?",
		[]string{"strict", "flexible", "auto"}, cfg.Stitch.Strategy)
	if err != nil {
		return errPromptCancelled
	}
	cfg.Stitch.Strategy = strategy

	return nil
}
