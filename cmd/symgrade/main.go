// Command symgrade grades mathematical responses from the command line or
// serves the grader over HTTP.
//
// Usage:
//
//	symgrade eval --answer "x**2 - 1" "(x - 1)*(x + 1)"
//	symgrade preview --latex '\frac{x}{2}'
//	symgrade serve --port 8080
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/njchilds90/symgrade"
)

var (
	logLevel   string
	paramsFile string
	paramsJSON string

	rootCmd = &cobra.Command{
		Use:           "symgrade",
		Short:         "Grade free-form mathematical responses against a reference answer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", getEnvString("SYMGRADE_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(evalCmd, previewCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ce *symgrade.ConfigurationError
		if errors.As(err, &ce) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// loadParams reads --params (a JSON or YAML file) and then overlays
// --params-json when given.
func loadParams() (symgrade.Params, error) {
	var p symgrade.Params
	if paramsFile != "" {
		var err error
		if p, err = symgrade.LoadParamsFile(paramsFile); err != nil {
			return symgrade.Params{}, err
		}
	}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &p); err != nil {
			return symgrade.Params{}, fmt.Errorf("decode --params-json: %w", err)
		}
	}
	return p, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
