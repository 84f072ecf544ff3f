// Package main provides a CLI tool for minting and inspecting ephemeral
// credential tokens. Tokens minted with the dev secret will NOT verify
// against a production broker.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"keyrelay/internal/token"
)

const (
	// Dev secret - matches config.go when JWT_SECRET_KEY is not set
	devSecret = "dev-secret-key-change-in-production"

	defaultTTLMinutes = 5
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	issueCmd := flag.NewFlagSet("issue", flag.ExitOnError)
	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)

	// Issue flags
	issueAgent := issueCmd.String("agent-id", "dev-agent", "Requesting agent identity")
	issueType := issueCmd.String("resource-type", "database", "Resource type (database, api, ssh, generic)")
	issueName := issueCmd.String("resource-name", "dev-postgres", "Resource name")
	issueTTL := issueCmd.Int("ttl", defaultTTLMinutes, "Token time-to-live in minutes (1-15)")
	issueCreds := issueCmd.String("credentials", "username=dev,password=dev", "Comma-separated key=value credential pairs")
	issueSecret := issueCmd.String("secret", devSecret, "Master secret (defaults to the dev secret)")
	issueJSON := issueCmd.Bool("json", false, "Output as JSON")

	// Inspect flags
	inspectSecret := inspectCmd.String("secret", devSecret, "Master secret (defaults to the dev secret)")
	inspectDecrypt := inspectCmd.Bool("decrypt", false, "Decrypt and print the credential payload")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "issue":
		issueCmd.Parse(os.Args[2:])
		issueToken(*issueAgent, *issueType, *issueName, *issueTTL, *issueCreds, *issueSecret, *issueJSON)
	case "inspect":
		inspectCmd.Parse(os.Args[2:])
		if inspectCmd.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: tokengen inspect [flags] <token>")
			os.Exit(1)
		}
		inspectToken(inspectCmd.Arg(0), *inspectSecret, *inspectDecrypt)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Mint and inspect ephemeral credential tokens

WARNING: Tokens minted with the dev secret will NOT verify against a
         production broker. Only use for local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  issue     Mint an ephemeral credential token
  inspect   Verify a token and print its claims

Examples:
  # Mint a token with defaults
  tokengen issue

  # Mint an API token with custom credentials and TTL
  tokengen issue -resource-type api -resource-name stripe-api -credentials "api_key=sk_test" -ttl 10

  # Verify a token and print the signed claims
  tokengen inspect <token>

  # Verify a token and decrypt the credential payload
  tokengen inspect -decrypt <token>

Use "tokengen <command> -h" for more information about a command.`)
}

func newCodec(secret string) *token.Codec {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := token.NewCodec(secret, defaultTTLMinutes, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building codec: %v\n", err)
		os.Exit(1)
	}
	return codec
}

func issueToken(agentID, resourceType, resourceName string, ttl int, creds, secret string, jsonOutput bool) {
	codec := newCodec(secret)

	signed, claims, err := codec.Issue(agentID, parseCredentials(creds), resourceType, resourceName, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error issuing token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     signed,
			Type:      "ephemeral_credential",
			ExpiresIn: (time.Duration(claims.TTLMinutes) * time.Minute).String(),
			Claims: map[string]any{
				"agent_id":      claims.Subject,
				"resource_type": claims.ResourceType,
				"resource_name": claims.ResourceName,
				"ttl_minutes":   claims.TTLMinutes,
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Ephemeral Credential Token")
	fmt.Println("==========================")
	fmt.Printf("Agent ID:    %s\n", claims.Subject)
	fmt.Printf("Resource:    %s/%s\n", claims.ResourceType, claims.ResourceName)
	fmt.Printf("Expires In:  %d minutes\n", claims.TTLMinutes)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
}

func inspectToken(signed, secret string, decrypt bool) {
	codec := newCodec(secret)

	if decrypt {
		access, err := codec.VerifyAndDecrypt(signed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Token rejected: %v\n", err)
			os.Exit(1)
		}
		printJSON(map[string]any{
			"agent_id":      access.AgentID,
			"resource_type": access.ResourceType,
			"resource_name": access.ResourceName,
			"issued_at":     access.IssuedAt.Format(time.RFC3339),
			"expires_at":    access.ExpiresAt.Format(time.RFC3339),
			"ttl_minutes":   access.TTLMinutes,
			"credentials":   access.Credentials,
		})
		return
	}

	claims, err := codec.Verify(signed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Token rejected: %v\n", err)
		os.Exit(1)
	}
	printJSON(map[string]any{
		"agent_id":      claims.Subject,
		"resource_type": claims.ResourceType,
		"resource_name": claims.ResourceName,
		"issued_at":     claims.IssuedAt.Time.Format(time.RFC3339),
		"expires_at":    claims.ExpiresAt.Time.Format(time.RFC3339),
		"ttl_minutes":   claims.TTLMinutes,
	})
}

func parseCredentials(creds string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(creds, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && key != "" {
			result[key] = value
		}
	}
	return result
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
