package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait [url]...",
	Short: "Wait until the agent (and any other given services) report healthy",
	RunE:  runWait,
}

func init() {
	waitCmd.Flags().Duration("for", 60*time.Second, "Give up after this long")
	waitCmd.Flags().Duration("interval", time.Second, "Delay between health checks")
}

// checkHealth performs a single GET <baseURL>/healthz.
func checkHealth(client *resty.Client, baseURL string) error {
	resp, err := client.R().Get(strings.TrimSuffix(baseURL, "/") + "/healthz")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unhealthy: %d", resp.StatusCode())
	}
	return nil
}

// waitForHealth polls baseURL until it is healthy or timeout elapses.
func waitForHealth(client *resty.Client, baseURL string, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := checkHealth(client, baseURL)
		if err == nil {
			return nil
		}
		if time.Now().Add(interval).After(deadline) {
			return fmt.Errorf("%s: health check timeout after %v: %w", baseURL, timeout, err)
		}
		time.Sleep(interval)
	}
}

func runWait(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("for")
	interval, _ := cmd.Flags().GetDuration("interval")
	requestTimeout, _ := cmd.Flags().GetDuration("timeout")

	targets := args
	if len(targets) == 0 {
		agent, _ := cmd.Flags().GetString("agent")
		targets = []string{agent}
	}

	client := resty.New().SetTimeout(requestTimeout)
	for _, target := range targets {
		if err := waitForHealth(client, target, timeout, interval); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s healthy\n", target)
	}
	return nil
}
