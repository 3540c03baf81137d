// Package main is agentshipctl, a small operator-facing CLI: a
// development-time sanity check for an MCP server-definitions file, built
// as a cobra/viper command tree without a TUI layer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "agentshipctl",
	Short: "AgentShip operator CLI",
	Long: `agentshipctl is a small operator-facing CLI around AgentShip's core
runtime packages (internal/config, internal/mcpregistry). It does not serve
agents or expose an HTTP/SSE transport — that boundary belongs to the
embedding application.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; no default file is searched when unset)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
