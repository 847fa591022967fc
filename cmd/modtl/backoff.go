package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ZaguanLabs/modtl"
	"github.com/spf13/cobra"
)

type backoffFlags struct {
	status     int
	retryAfter string
	bodyFile   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func newBackoffCmd(g *globals) *cobra.Command {
	f := &backoffFlags{}

	cmd := &cobra.Command{
		Use:   "backoff",
		Short: "Show the retry schedule for a provider error response",
		Long: `Backoff replays the retry decisions for a single error response.
A status of 0 simulates a transport failure without a response.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackoff(cmd, g, f)
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&f.status, "status", http.StatusTooManyRequests, "HTTP status of the response")
	fl.StringVar(&f.retryAfter, "retry-after", "", "Retry-After header value")
	fl.StringVar(&f.bodyFile, "body", "", "file holding the JSON error body")
	fl.IntVar(&f.maxRetries, "max-retries", 0, "override retry.max_retries")
	fl.DurationVar(&f.baseDelay, "base-delay", 0, "override retry.base_delay")
	fl.DurationVar(&f.maxDelay, "max-delay", 0, "override retry.max_delay")
	return cmd
}

func runBackoff(cmd *cobra.Command, g *globals, f *backoffFlags) error {
	policy := g.cfg.RetryPolicy()
	if f.maxRetries > 0 {
		policy.MaxRetries = f.maxRetries
	}
	if f.baseDelay > 0 {
		policy.BaseDelay = f.baseDelay
	}
	if f.maxDelay > 0 {
		policy.MaxDelay = f.maxDelay
	}

	var pe *modtl.ProviderError
	if f.status == 0 {
		pe = modtl.NewNetworkError("simulated transport failure", nil)
	} else {
		var body []byte
		if f.bodyFile != "" {
			data, err := os.ReadFile(f.bodyFile) // #nosec G304 - CLI tool reads user-specified files
			if err != nil {
				return fmt.Errorf("reading body: %w", err)
			}
			body = data
		}
		header := http.Header{}
		if f.retryAfter != "" {
			header.Set("Retry-After", f.retryAfter)
		}
		pe = modtl.FromHTTPResponse(f.status, header, body, time.Now())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Error:  %s (class %s)\n", pe.Error(), pe.Class)
	if pe.Hint != nil {
		fmt.Fprintf(out, "Hint:   %v from %s\n", pe.Hint.Delay, pe.Hint.Source)
	}
	for _, q := range pe.Quota {
		fmt.Fprintf(out, "Quota:  %s %s\n", q.Subject, q.Description)
	}
	fmt.Fprintf(out, "Policy: max_retries=%d base_delay=%v max_delay=%v\n\n", policy.MaxRetries, policy.BaseDelay, policy.MaxDelay)

	var total time.Duration
	for attempt := 0; ; attempt++ {
		d := modtl.Evaluate(pe, policy, attempt)
		if !d.ShouldRetry {
			fmt.Fprintf(out, "attempt %d: give up\n", attempt+1)
			break
		}
		total += d.Delay
		source := "backoff"
		if d.UsedHint {
			source = "hint"
		}
		fmt.Fprintf(out, "attempt %d: retry in %v (%s)\n", attempt+1, d.Delay, source)
	}
	fmt.Fprintf(out, "\nTotal wait: %v\n", total)
	return nil
}
