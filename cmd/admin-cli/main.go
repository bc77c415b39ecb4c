package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	gatewayURL string
	authToken  string
)

var rootCmd = &cobra.Command{
	Use:   "gateway-admin",
	Short: "Dataspace Gateway Administration CLI",
	Long:  `A command-line interface for managing and monitoring the dataspace gateway.`,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway status",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doGet("/api/v1/status")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "Participant management",
}

var participantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered participants",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doGet("/api/v1/participants")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var participantsShowCmd = &cobra.Command{
	Use:   "show <participant-id>",
	Short: "Show one participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doGet("/api/v1/participants/" + args[0])
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Catalog cache operations",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop all cached catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doPost("/api/v1/cache/purge", nil); err != nil {
			return err
		}
		fmt.Println("catalog cache purged")
		return nil
	},
}

var dataspacesCmd = &cobra.Command{
	Use:   "dataspaces",
	Short: "List known dataspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doGet("/api/v1/dataspaces")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "http://localhost:8080", "gateway base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("GATEWAY_TOKEN"), "bearer token")

	participantsCmd.AddCommand(participantsListCmd)
	participantsCmd.AddCommand(participantsShowCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(participantsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(dataspacesCmd)
}

func doGet(path string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, strings.TrimSuffix(gatewayURL, "/")+path, nil)
	if err != nil {
		return "", err
	}
	return doRequest(req)
}

func doPost(path string, body io.Reader) error {
	req, err := http.NewRequest(http.MethodPost, strings.TrimSuffix(gatewayURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = doRequest(req)
	return err
}

func doRequest(req *http.Request) (string, error) {
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var pretty json.RawMessage
	if json.Unmarshal(data, &pretty) == nil {
		if formatted, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			return string(formatted), nil
		}
	}
	return string(data), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
