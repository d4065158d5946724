package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envName string

var rootCmd = &cobra.Command{
	Use:           "grader",
	Short:         "Code execution and grading service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(envName, cmd.Flags().Changed("env"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "local", "environment name; <env>.env is loaded before reading config")
}

// loadEnv reads <env>.env into the process environment. A missing file is
// only an error when the environment was asked for explicitly.
func loadEnv(environment string, explicit bool) error {
	err := godotenv.Load(environment + ".env")
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	return fmt.Errorf("error loading %s.env file: %w", environment, err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
