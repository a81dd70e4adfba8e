package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/user/theo/internal/config"
)

var showSecrets bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configValidateCmd)
	configListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print redis.url and telegram.token in full")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
	Long: `Settings are addressed by dot-separated keys such as store.backend or
analytics.timezone. Digests are addressed by position: digests.0.schedule.`,
}

var configListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List effective settings, optionally only those under prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := config.ListValues(loadConfig(), !showSecrets)
		if err != nil {
			return fmt.Errorf("list config: %w", err)
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		keys := config.SortedKeys(values, prefix)
		if len(keys) == 0 {
			return fmt.Errorf("unknown config key: %s", prefix)
		}
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, render(values[k]))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored in the config file for key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		if _, nested := val.(map[string]any); nested {
			return writeIndented(cmd.OutOrStdout(), val)
		}
		if _, list := val.([]any); list {
			return writeIndented(cmd.OutOrStdout(), val)
		}
		fmt.Fprintln(cmd.OutOrStdout(), render(val))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting in the config file",
	Long: `Change one setting in the config file. Values are validated before the
file is written: store.backend must name a known backend, analytics.timezone
must be an IANA zone and digest schedules must parse as cron expressions.
A branch key replaces the whole subtree, for example:

  theo config set digests '[{"name":"weekly","schedule":"0 9 * * MON","target":"telegram:42","enabled":true}]'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]
		if err := config.SetValue(cfgPath, key, raw); err != nil {
			return err
		}
		if config.IsSecretKey(key) {
			raw = config.MaskSecrets(map[string]any{key: raw})[key].(string)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, raw)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the effective settings, including environment overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := loadConfig().Validate()
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Config OK")
			return nil
		}
		problems := []error{err}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			problems = joined.Unwrap()
		}
		for _, p := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", p)
		}
		return errors.New("config has problems")
	},
}

// render prints strings bare and everything else as JSON, so null reads null
// rather than <nil>.
func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func writeIndented(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
