package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/VatsalSy/SqlProvider/internal/config"
	"github.com/VatsalSy/SqlProvider/internal/drivers"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage SqlProvider configuration",
	Long: `View and create SqlProvider configuration.

Configuration can be managed through:
  • Interactive prompts (config init)
  • Environment variables (SQLPROVIDER_*)
  • Direct file editing`,
	Example: `  # View effective configuration
  sqlprovider config show

  # Create a config file interactively
  sqlprovider config init

  # Print the config file location
  sqlprovider config path`,
}

var (
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
)

// ConfigItem is one row of the configuration listing
type ConfigItem struct {
	Key         string
	Description string
	Value       string
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	// Set default run function
	configCmd.RunE = runConfigShow
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, color.CyanString("⚙️  SqlProvider Configuration"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Config file: %s\n\n", config.ConfigPath())

	for _, group := range configGroups(cfg) {
		fmt.Fprintln(out, color.YellowString(group.name+":"))

		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, WidthMax: 30},
			{Number: 2, WidthMax: 40},
			{Number: 3, WidthMax: 60},
		})

		for _, item := range group.items {
			value := item.Value
			if value == "" {
				value = color.New(color.FgHiBlack).Sprint("(not set)")
			}
			t.AppendRow(table.Row{item.Key, item.Description, value})
		}

		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(out, color.RedString("✗ %v", err))
	}

	return nil
}

type configGroup struct {
	name  string
	items []ConfigItem
}

func configGroups(cfg *config.Config) []configGroup {
	names := make([]string, 0, len(cfg.Database.Connections))
	for name := range cfg.Database.Connections {
		names = append(names, name)
	}
	sort.Strings(names)

	connections := []ConfigItem{
		{"database.driver", "Driver", cfg.Database.Driver},
		{"database.connection", "Active connection", cfg.Database.Connection},
	}
	for _, name := range names {
		connections = append(connections, ConfigItem{
			"database.connections." + name, "Connection string", maskDSN(cfg.Database.Connections[name]),
		})
	}

	return []configGroup{
		{"Connections", connections},
		{"Sessions", []ConfigItem{
			{"database.command_timeout", "Command timeout (s, -1 default)", fmt.Sprintf("%d", cfg.Database.CommandTimeout)},
			{"database.isolation", "Transaction isolation", cfg.Database.Isolation},
			{"database.statement_after_open", "Post-open statement", cfg.Database.StatementAfterOpen},
			{"database.statement_before_close", "Pre-close statement", cfg.Database.StatementBeforeClose},
			{"database.legacy_sentinel_nulls", "Sentinel values bind as NULL", fmt.Sprintf("%v", cfg.Database.LegacySentinelNulls)},
		}},
		{"Pool", []ConfigItem{
			{"database.max_open_conns", "Max open connections", fmt.Sprintf("%d", cfg.Database.MaxOpenConns)},
			{"database.max_idle_conns", "Max idle connections", fmt.Sprintf("%d", cfg.Database.MaxIdleConns)},
			{"database.max_idle_time", "Max idle time (s)", fmt.Sprintf("%d", cfg.Database.MaxIdleTime)},
			{"database.rate_limit", "Commands per second (0 unlimited)", fmt.Sprintf("%g", cfg.Database.RateLimit)},
			{"retry.max_attempts", "Connection attempts", fmt.Sprintf("%d", cfg.Retry.MaxAttempts)},
		}},
		{"Logging", []ConfigItem{
			{"log.level", "Log level", cfg.Log.Level},
			{"log.format", "Log format", cfg.Log.Format},
			{"log.output", "Log output", cfg.Log.Output},
			{"log.file", "Log file path", cfg.Log.File},
		}},
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), color.CyanString("🛠  SqlProvider Setup"))

	answers := struct {
		Driver    string `survey:"driver"`
		DSN       string `survey:"dsn"`
		Timeout   string `survey:"timeout"`
		Level     string `survey:"level"`
		Sentinels bool   `survey:"sentinels"`
	}{}

	questions := []*survey.Question{
		{
			Name: "driver",
			Prompt: &survey.Select{
				Message: "Database driver:",
				Options: drivers.Supported(),
				Default: drivers.SQLite,
			},
		},
		{
			Name:     "dsn",
			Prompt:   &survey.Input{Message: "Connection string:"},
			Validate: survey.Required,
		},
		{
			Name: "timeout",
			Prompt: &survey.Input{
				Message: "Command timeout in seconds (-1 for the engine default):",
				Default: "-1",
			},
		},
		{
			Name: "level",
			Prompt: &survey.Select{
				Message: "Log level:",
				Options: []string{"debug", "info", "warn", "error"},
				Default: "info",
			},
		},
		{
			Name: "sentinels",
			Prompt: &survey.Confirm{
				Message: "Bind legacy sentinel values (minimum integers, zero unsigned) as NULL?",
				Default: false,
			},
		},
	}

	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	var timeout int
	if _, err := fmt.Sscanf(strings.TrimSpace(answers.Timeout), "%d", &timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", answers.Timeout, err)
	}

	path := cfgFile
	if path == "" {
		path = config.ConfigPath()
	}

	config.SetDefaults(viper.GetViper())
	viper.Set("database.driver", answers.Driver)
	viper.Set("database.connection", "default")
	viper.Set("database.connections", map[string]string{"default": answers.DSN})
	viper.Set("database.command_timeout", timeout)
	viper.Set("database.legacy_sentinel_nulls", answers.Sentinels)
	viper.Set("log.level", answers.Level)

	if err := config.Save(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration saved to %s\n", color.GreenString("✓"), path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		fmt.Fprintln(cmd.OutOrStdout(), cfgFile)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
	return nil
}

// maskDSN hides the password of URL-style and key=value connection strings.
func maskDSN(dsn string) string {
	if at := strings.Index(dsn, "@"); at > 0 {
		if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
			userinfo := dsn[scheme+3 : at]
			if colon := strings.Index(userinfo, ":"); colon >= 0 {
				return dsn[:scheme+3] + userinfo[:colon] + ":****" + dsn[at:]
			}
			return dsn
		}
		if colon := strings.Index(dsn[:at], ":"); colon >= 0 {
			return dsn[:colon] + ":****" + dsn[at:]
		}
	}

	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = f[:len("password=")] + "****"
		}
	}
	return strings.Join(fields, " ")
}
