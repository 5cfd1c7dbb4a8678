// Package cmd implements the CLI commands for proplens.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "proplens",
	Short: "Search and evaluate Korean property listings",
	Long: "proplens searches 네이버부동산 listings, enriches them with 국토부 " +
		"실거래가 data, filters and scores them against your criteria, flags " +
		"contract risks, and produces a ranked report with questions to ask " +
		"the listing agent.",
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().String("output", "text", "output format (text, json)")

	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.AddCommand(versionCommand())
}

// initEnv loads a .env file when present so ${VAR} references in the config
// file resolve. Missing .env is not an error.
func initEnv() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("PROPLENS")
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
