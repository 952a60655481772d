// Package setup implements the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/projectchronos/chronos/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

const generatedConfigFile = "config.gen.yaml"

// RunTUI launches the terminal configuration wizard and writes the
// resulting config to config.gen.yaml.
func RunTUI() error {
	var (
		mode            string
		platform        string
		pair            string
		startDate       string
		endDate         string
		capitalStr      string
		waitBudgetStr   string
		apiURL          string
		apiKey          string
		model           string
		generateDebates bool
		confirm         bool
	)

	// defaults
	pair = "BTC_USDT"
	capitalStr = "1000000"
	waitBudgetStr = "300s"
	apiURL = "https://openrouter.ai/api/v1/chat/completions"
	model = "deepseek/deepseek-chat"

	clearScreen()
	fmt.Println(headerStyle.Render("CHRONOS CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's set up your backtest.\n"))

	fmt.Println(stepStyle.Render("STEP 1: DECISION MODE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should investors decide?").
				Options(
					huh.NewOption("AI (LLM-based, rule fallback)", "ai"),
					huh.NewOption("Rules only (fully offline)", "rule"),
				).
				Value(&mode),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(headerStyle.Render("CHRONOS CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: MARKET DATA"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select data platform").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
				).
				Value(&platform),
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&pair).
				Validate(func(s string) error {
					if !strings.Contains(s, "_") {
						return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(headerStyle.Render("CHRONOS CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: SIMULATION PERIOD"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start Date").
				Description("Format 2006-01-02").
				Value(&startDate).
				Validate(validateDate),
			huh.NewInput().
				Title("End Date").
				Description("Format 2006-01-02").
				Value(&endDate).
				Validate(validateDate),
			huh.NewInput().
				Title("Initial Capital (USD)").
				Value(&capitalStr).
				Validate(func(s string) error {
					d, err := decimal.NewFromString(s)
					if err != nil {
						return fmt.Errorf("must be a valid number")
					}
					if !d.IsPositive() {
						return fmt.Errorf("must be positive")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Generate daily roundtable transcripts?").
				Value(&generateDebates),
		),
	).Run()
	if err != nil {
		return err
	}

	if mode == "ai" {
		clearScreen()
		fmt.Println(headerStyle.Render("CHRONOS CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 4: AI SETTINGS"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("LLM API URL").
					Value(&apiURL),
				huh.NewInput().
					Title("LLM API Key").
					Description("Leave empty to use CHRONOS_LLM_API_KEY").
					Value(&apiKey).
					EchoMode(huh.EchoModePassword),
				huh.NewInput().
					Title("Model Name").
					Value(&model),
				huh.NewInput().
					Title("AI Wait Budget").
					Description("How long to wait for the model before falling back (e.g. 300s)").
					Value(&waitBudgetStr).
					Validate(func(s string) error {
						_, err := time.ParseDuration(s)
						return err
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	clearScreen()
	fmt.Println(headerStyle.Render("CHRONOS CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Mode: %s\nPlatform: %s\nPair: %s\nPeriod: %s .. %s\nCapital: $%s\nDebates: %v\n",
		mode, platform, pair, startDate, endDate, capitalStr, generateDebates,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfgTmp := config.ConfigTmp{
		StartDate:       startDate,
		EndDate:         endDate,
		InitialCapital:  capitalStr,
		Mode:            mode,
		Platform:        platform,
		Pair:            pair,
		GenerateDebates: generateDebates,
	}
	if mode == "ai" {
		cfgTmp.Model = model
		cfgTmp.WaitBudget = waitBudgetStr
		cfgTmp.LLMAPIURL = apiURL
		cfgTmp.LLMAPIKey = apiKey
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(generatedConfigFile, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s\nRun: chronos --config %s", generatedConfigFile, generatedConfigFile)))
	return nil
}

func validateDate(s string) error {
	_, err := time.Parse("2006-01-02", s)
	return err
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}
