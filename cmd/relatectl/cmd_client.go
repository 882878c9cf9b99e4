// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/RelateFOSS/services/relate/match"
	"github.com/AleutianAI/RelateFOSS/services/relate/workflow"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

type resolveRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type reloadResponse struct {
	File     string    `json:"file"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Data    struct {
		File       string    `json:"file"`
		LastLoaded time.Time `json:"last_loaded"`
		RowCount   int       `json:"row_count"`
	} `json:"data"`
}

func runResolveCommand(_ *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	baseURL := getServerBaseURL()

	body, err := json.Marshal(resolveRequest{Name: name})
	if err != nil {
		return err
	}

	resp, err := httpClient.Post(baseURL+"/v1/relate/resolve", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("contacting server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeServerError(resp)
	}

	var resolution workflow.Resolution
	if err := json.NewDecoder(resp.Body).Decode(&resolution); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	printResolution(&resolution)
	return nil
}

func runStreamCommand(_ *cobra.Command, args []string) error {
	name := strings.Join(args, " ")

	wsURL, err := streamURL(getServerBaseURL())
	if err != nil {
		return err
	}

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(resolveRequest{Name: name}); err != nil {
		return fmt.Errorf("sending query: %w", err)
	}

	for {
		var ev workflow.Event
		if err := ws.ReadJSON(&ev); err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}

		switch ev.Kind {
		case workflow.EventStart:
			fmt.Printf("▶ run %s: resolving %q\n", ev.RunID, ev.Name)
		case workflow.EventNode:
			if ev.Match != nil {
				fmt.Printf("  • %s (strategy=%s score=%.4f)\n", ev.Node, ev.Match.Strategy, ev.Match.Score)
			} else {
				fmt.Printf("  • %s\n", ev.Node)
			}
		case workflow.EventResult:
			fmt.Println()
			printResolution(ev.Payload)
		case workflow.EventError:
			return fmt.Errorf("%s: %s", ev.Code, ev.Message)
		case workflow.EventEnd:
			fmt.Printf("✓ done in %dms\n", ev.DurationMs)
			return nil
		default:
			fmt.Printf("  ? unknown event %q\n", ev.Kind)
		}
	}
}

func runReloadCommand(_ *cobra.Command, _ []string) error {
	baseURL := getServerBaseURL()

	resp, err := httpClient.Post(baseURL+"/v1/relate/reload", "application/json", nil)
	if err != nil {
		return fmt.Errorf("contacting server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeServerError(resp)
	}

	var reload reloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&reload); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Printf("Reloaded %s: %d rows at %s\n",
		reload.File, reload.Rows, reload.LoadedAt.Format(time.RFC3339))
	return nil
}

func runHealthCommand(_ *cobra.Command, _ []string) error {
	baseURL := getServerBaseURL()

	resp, err := httpClient.Get(baseURL + "/v1/relate/health")
	if err != nil {
		return fmt.Errorf("contacting server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeServerError(resp)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Printf("Status:  %s (v%s)\n", health.Status, health.Version)
	fmt.Printf("Dataset: %s\n", health.Data.File)
	if !health.Data.LastLoaded.IsZero() {
		fmt.Printf("Loaded:  %s (%d rows)\n",
			health.Data.LastLoaded.Format(time.RFC3339), health.Data.RowCount)
	} else {
		fmt.Println("Loaded:  never")
	}
	return nil
}

// printResolution renders one resolution for a human reader.
func printResolution(r *workflow.Resolution) {
	if r == nil {
		fmt.Println("(no result)")
		return
	}
	if r.Matching.Strategy == match.StrategyNone {
		fmt.Printf("%s: no match found\n", r.Person)
		return
	}
	fmt.Printf("%s is your %s\n", r.Person, r.Relationship)
	fmt.Printf("  strategy=%s score=%.4f confidence=%s\n",
		r.Matching.Strategy, r.Matching.Score, r.Confidence)
	fmt.Printf("  source=%s rows=%d loaded=%s\n",
		r.Source.File, r.Source.Rows, r.Source.LastLoadedAt.Format(time.RFC3339))
}

// streamURL converts an http(s) base URL into the ws(s) stream endpoint.
func streamURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/v1/relate/stream"
	return u.String(), nil
}

// decodeServerError turns a non-200 response into a readable error.
func decodeServerError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var serverErr errorResponse
	if json.Unmarshal(data, &serverErr) == nil && serverErr.Error != "" {
		if serverErr.Details != "" {
			return fmt.Errorf("server returned %s: %s (%s)", resp.Status, serverErr.Error, serverErr.Details)
		}
		return fmt.Errorf("server returned %s: %s", resp.Status, serverErr.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
