// Command test-extraction runs a single COI PDF through the extraction
// pipeline and prints the result, for verifying API connectivity and
// prompt behavior outside the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/compliance"
	"github.com/certwatch/coi-compliance/internal/extraction"
	"github.com/certwatch/coi-compliance/internal/retry"
)

func main() {
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	model := flag.String("model", "gpt-4o", "Vision model to use")
	timeout := flag.Duration("timeout", 2*time.Minute, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: test-extraction [--key sk-...] [--model gpt-4o] <coi.pdf>\n")
		os.Exit(1)
	}
	pdfPath := flag.Arg(0)

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = gotenv.Load()
	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *apiKey == "" {
		fmt.Fprintf(os.Stderr, "ERROR: OPENAI_API_KEY not set and no --key flag provided\n")
		os.Exit(1)
	}

	if _, err := os.Stat(pdfPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Certificate file not found: %s\n", pdfPath)
		os.Exit(1)
	}

	fmt.Println("=== COI Extraction Test ===")
	fmt.Printf("  Certificate: %s\n", pdfPath)
	fmt.Printf("  Model: %s\n", *model)
	fmt.Printf("  Timeout: %v\n\n", *timeout)

	extractor, err := extraction.NewCOIExtractor(*apiKey, *model, 0.1, retry.NewInvoker(logger), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	startTime := time.Now()
	data, err := extractor.ExtractCOI(ctx, pdfPath)
	duration := time.Since(startTime)

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ ERROR: Extraction failed\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "Possible causes:\n")
		fmt.Fprintf(os.Stderr, "  1. Invalid or expired OPENAI_API_KEY\n")
		fmt.Fprintf(os.Stderr, "  2. Network connectivity issue\n")
		fmt.Fprintf(os.Stderr, "  3. API quota exceeded\n")
		fmt.Fprintf(os.Stderr, "  4. Unreadable or non-PDF certificate file\n")
		os.Exit(1)
	}

	fmt.Println("✓ Extraction succeeded")
	fmt.Printf("API Response Time: %v\n\n", duration)

	fmt.Println("=== Extracted Coverage ===")
	fmt.Printf("Insured: %s\n", data.InsuredName)
	fmt.Printf("Producer: %s\n", data.ProducerName)
	fmt.Printf("Expiration: %s\n", data.ExpirationDate)
	if days, ok := compliance.DaysUntil(data.ExpirationDate, time.Now()); ok {
		fmt.Printf("Days until expiration: %d\n", days)
	}

	if len(data.Issues) > 0 {
		fmt.Println("\nIssues flagged on the certificate:")
		for i, issue := range data.Issues {
			fmt.Printf("  %d. %s\n", i+1, issue)
		}
	} else {
		fmt.Println("\n✓ No issues flagged")
	}

	fmt.Println("\n=== Full Response (JSON) ===")
	jsonBytes, _ := json.MarshalIndent(data, "", "  ")
	fmt.Println(string(jsonBytes))

	fmt.Println("\n✅ Extraction Test PASSED!")
}
