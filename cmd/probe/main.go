package main

// Command-line page probe. Fetches a page, runs the eligibility check
// locally, and posts an analyzePageContent message to a running relay:
//   go run ./cmd/probe -url https://www.amazon.com/dp/B01 [-relay http://localhost:8080]

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"ecosense-relay/internal/dispatch"
	"ecosense-relay/internal/shared/config"
	"ecosense-relay/internal/sites"
)

const maxPageBytes = 4 << 20

func main() {
	pageURL := flag.String("url", "", "page URL to analyze (required)")
	relayURL := flag.String("relay", "http://localhost:8080", "base URL of the relay")
	force := flag.Bool("force", false, "skip the domain eligibility check")
	flag.Parse()

	if *pageURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	domains := append([]string{}, sites.DefaultDomains...)
	domains = append(domains, cfg.ExtraDomains...)
	matcher := sites.NewMatcher(domains)

	if !*force && !matcher.MatchesURL(*pageURL) {
		log.Fatalf("%s is not a supported e-commerce domain (use -force to override)", *pageURL)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	html, err := fetchPage(client, *pageURL)
	if err != nil {
		log.Fatalf("fetch page: %v", err)
	}

	cycleID := uuid.NewString()
	msg := dispatch.NewMessage(dispatch.ActionAnalyzePageContent, cycleID, *pageURL, html)
	body, err := dispatch.EncodeMessage(msg)
	if err != nil {
		log.Fatalf("encode message: %v", err)
	}

	resp, err := client.Post(*relayURL+"/api/v1/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("post message: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("relay rejected message: %s %s", resp.Status, respBody)
	}

	fmt.Printf("cycle %s dispatched (%d bytes of page content)\n", cycleID, len(html))
}

func fetchPage(client *http.Client, pageURL string) (string, error) {
	resp, err := client.Get(pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
