package setup

import (
	"fmt"
	"net/mail"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/LewisWJackson/RedDayDCAAlerter/config"
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

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		pair            string
		pollIntervalStr string
		intradayStr     string
		closeStr        string
		maxTriggersStr  string
		brokerEmail     string
		personalEmail   string
		confirm         bool
	)

	// defaults
	pair = "BTC_USDT"
	pollIntervalStr = "60s"
	intradayStr = "-4.7"
	closeStr = "-3.3"
	maxTriggersStr = "15"

	// step 1: welcome + asset
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("RED DAY DCA ALERTER SETUP"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Configure your buy-the-dip alert sequence.\n"))

	fmt.Println(stepStyle.Render("STEP 1: ASSET"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Watched Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&pair).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("pair cannot be empty")
					}
					if !containsUnderscore(s) {
						return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: thresholds
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("RED DAY DCA ALERTER SETUP"))
	fmt.Println(stepStyle.Render("STEP 2: TRIGGER THRESHOLDS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Intraday Drop %").
				Description("Negative percent vs yesterday's close (e.g. -4.7)").
				Value(&intradayStr).
				Validate(validateDropPercent),
			huh.NewInput().
				Title("Close-to-Close Drop %").
				Description("Negative percent between daily closes (e.g. -3.3)").
				Value(&closeStr).
				Validate(validateDropPercent),
			huh.NewInput().
				Title("Max Triggers").
				Description("Alerts to send before the sequence completes (e.g. 15)").
				Value(&maxTriggersStr).
				Validate(validateMaxTriggers),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: timing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("RED DAY DCA ALERTER SETUP"))
	fmt.Println(stepStyle.Render("STEP 3: TIMING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Poll Price Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&pollIntervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 4: recipients
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("RED DAY DCA ALERTER SETUP"))
	fmt.Println(stepStyle.Render("STEP 4: RECIPIENTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Broker Email").
				Description("Receives the formatted buy order").
				Value(&brokerEmail).
				Validate(validateEmail),
			huh.NewInput().
				Title("Personal Email").
				Description("Receives the action summary").
				Value(&personalEmail).
				Validate(validateEmail),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("RED DAY DCA ALERTER SETUP"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Pair: %s\nIntraday: %s%%\nClose-to-close: %s%%\nMax triggers: %s\nInterval: %s\nBroker: %s\nPersonal: %s\n",
		pair, intradayStr, closeStr, maxTriggersStr, pollIntervalStr, brokerEmail, personalEmail,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
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

	pollInterval, _ := time.ParseDuration(pollIntervalStr)
	maxTriggers := 0
	fmt.Sscanf(maxTriggersStr, "%d", &maxTriggers)

	cfgTmp := config.ConfigTmp{
		Pair:                     pair,
		PollPriceInterval:        pollInterval,
		IntradayThresholdPercent: intradayStr,
		CloseThresholdPercent:    closeStr,
		MaxTriggers:              maxTriggers,
		BrokerEmail:              brokerEmail,
		PersonalEmail:            personalEmail,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\nSaved to %s\nStarting alerter...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateDropPercent(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsNegative() {
		return fmt.Errorf("must be negative (a drop)")
	}
	return nil
}

func validateMaxTriggers(s string) error {
	n := 0
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("must be a valid email address")
	}
	return nil
}

func containsUnderscore(s string) bool {
	for _, r := range s {
		if r == '_' {
			return true
		}
	}
	return false
}
