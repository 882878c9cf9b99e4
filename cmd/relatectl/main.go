// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command relatectl is the command-line client for the Aleutian Relate
// server.
//
// Usage:
//
//	relatectl resolve "Saanvi"
//	relatectl stream "Saani"
//	relatectl reload
//	relatectl health
//
// The server address defaults to http://localhost:8080 and can be
// overridden with --server or the RELATE_SERVER environment variable.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serverFlag holds the --server flag value for all subcommands.
var serverFlag string

var rootCmd = &cobra.Command{
	Use:   "relatectl",
	Short: "Client for the Aleutian Relate name resolution server",
	Long: `relatectl talks to a running Aleutian Relate server.

It can resolve a name to a relationship, stream every step of a
resolution over a WebSocket, trigger a dataset reload, and check
server health.`,
	SilenceUsage: true,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Resolve a name to a relationship",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolveCommand,
}

var streamCmd = &cobra.Command{
	Use:   "stream <name>",
	Short: "Resolve a name, printing every workflow step as it happens",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStreamCommand,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the server's dataset snapshot",
	Args:  cobra.NoArgs,
	RunE:  runReloadCommand,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health and dataset provenance",
	Args:  cobra.NoArgs,
	RunE:  runHealthCommand,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "",
		"Server base URL (default http://localhost:8080, or RELATE_SERVER)")
	rootCmd.AddCommand(resolveCmd, streamCmd, reloadCmd, healthCmd)
}

// getServerBaseURL resolves the server address: flag, then environment,
// then the local default.
func getServerBaseURL() string {
	if serverFlag != "" {
		return serverFlag
	}
	if env := os.Getenv("RELATE_SERVER"); env != "" {
		return env
	}
	return "http://localhost:8080"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
