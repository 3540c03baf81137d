package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentship/agentship/internal/mcpregistry"
)

var mcpConfigPath string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Inspect and validate MCP server definitions",
}

var mcpValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load an MCP server-definitions file and report every resolved server",
	Long: `validate exercises internal/mcpregistry.Load against a real file: the
same "servers" or "mcpServers" root key, the same ${VAR} env-substitution
rule, and the same per-entry tolerance (a malformed entry is skipped with a
warning rather than aborting the whole load) that the runtime itself uses
when an agent references an MCP server by id.`,
	RunE: runMCPValidate,
}

func init() {
	mcpValidateCmd.Flags().StringVarP(&mcpConfigPath, "file", "f", "", "path to the MCP server-definitions file (default: $MCP_SERVERS_CONFIG resolution)")
	mcpCmd.AddCommand(mcpValidateCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPValidate(_ *cobra.Command, _ []string) error {
	path := mcpConfigPath
	if path == "" {
		if env := os.Getenv("MCP_SERVERS_CONFIG"); env != "" {
			path = env
		} else {
			return fmt.Errorf("no --file given and MCP_SERVERS_CONFIG is unset")
		}
	}

	reg, err := mcpregistry.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	ids := reg.ListServerIDs()
	sort.Strings(ids)
	if len(ids) == 0 {
		fmt.Println("no servers resolved")
		return nil
	}

	fmt.Printf("%d server(s) resolved from %s:\n", len(ids), path)
	for _, id := range ids {
		cfg, _ := reg.GetServer(id)
		switch cfg.Transport {
		case mcpregistry.TransportStdio:
			fmt.Printf("  - %s  [stdio]  command=%v\n", id, cfg.Command)
		default:
			fmt.Printf("  - %s  [%s]  url=%s\n", id, cfg.Transport, cfg.URL)
		}
		if len(cfg.Tools) > 0 {
			fmt.Printf("      tools allow-list: %v\n", cfg.Tools)
		}
		if cfg.Auth.Type != "" && cfg.Auth.Type != mcpregistry.AuthNone {
			fmt.Printf("      auth: %s\n", cfg.Auth.Type)
		}
	}
	return nil
}
