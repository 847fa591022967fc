package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ZaguanLabs/modtl"
	"github.com/ZaguanLabs/modtl/config"
	"github.com/ZaguanLabs/modtl/placeholder"
	"github.com/ZaguanLabs/modtl/protect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type translateFlags struct {
	lang        string
	source      string
	output      string
	format      string
	context     string
	exclude     []string
	provider    string
	model       string
	apiKey      string
	baseURL     string
	workers     int
	batchSize   int
	dryRun      bool
	jsonOutput  bool
	diffFile    string
	reportFile  string
	metricsFile string
}

func newTranslateCmd(g *globals) *cobra.Command {
	f := &translateFlags{}

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate an HTML, JSON or YAML localization file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, g, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.lang, "lang", "l", "", "target language code (e.g. ko_KR, pt_BR)")
	fl.StringVar(&f.source, "source", "", "source language code (default from config, en)")
	fl.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	fl.StringVar(&f.format, "format", "", "input format: html, json, yaml (default: from extension)")
	fl.StringVar(&f.context, "context", "", "translation context, e.g. the mod's setting")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "terms to never translate")
	fl.StringVar(&f.provider, "provider", "", "provider: openai or gemini")
	fl.StringVar(&f.model, "model", "", "model name")
	fl.StringVar(&f.apiKey, "api-key", "", "provider API key")
	fl.StringVar(&f.baseURL, "base-url", "", "provider base URL")
	fl.IntVar(&f.workers, "workers", 0, "concurrent provider batches")
	fl.IntVar(&f.batchSize, "batch-size", 0, "strings per provider call")
	fl.BoolVar(&f.dryRun, "dry-run", false, "show what would be translated without calling the provider")
	fl.BoolVar(&f.jsonOutput, "json", false, "output result as JSON")
	fl.StringVar(&f.diffFile, "diff", "", "compare with a previous version and show what needs translation")
	fl.StringVar(&f.reportFile, "report", "", "write segment failure reports to this JSON file")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	return cmd
}

// apply copies explicit flags over the loaded configuration.
func (f *translateFlags) apply(g *globals) error {
	cfg := g.cfg
	if f.lang != "" {
		cfg.TargetLang = f.lang
	}
	if f.source != "" {
		cfg.SourceLang = f.source
	}
	if f.context != "" {
		cfg.Context = f.context
	}
	if len(f.exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, f.exclude...)
	}
	if f.provider != "" {
		cfg.Provider.Name = strings.ToLower(f.provider)
		if key := config.EnvAPIKey(cfg.Provider.Name); key != "" {
			cfg.Provider.APIKey = key
		}
	}
	if f.model != "" {
		cfg.Provider.Model = f.model
	}
	if f.apiKey != "" {
		cfg.Provider.APIKey = f.apiKey
	}
	if f.baseURL != "" {
		cfg.Provider.BaseURL = f.baseURL
	}
	if f.workers > 0 {
		cfg.Translator.Workers = f.workers
	}
	if f.batchSize > 0 {
		cfg.Translator.BatchSize = f.batchSize
	}
	if cfg.TargetLang == "" {
		return fmt.Errorf("--lang is required")
	}
	return cfg.Validate()
}

func runTranslate(cmd *cobra.Command, g *globals, f *translateFlags, args []string) error {
	if err := f.apply(g); err != nil {
		return err
	}
	cfg := g.cfg
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	input, inputName, inputPath, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	proc, err := newProcessor(f.format, inputPath)
	if err != nil {
		return err
	}

	if f.diffFile != "" {
		return runDiff(stdout, proc, input, inputName, f.diffFile, cfg.TargetLang, f.jsonOutput)
	}
	if f.dryRun {
		return runDryRun(stdout, proc, input, inputName, cfg.TargetLang, f.jsonOutput)
	}

	p, err := newProvider(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	opts := []modtl.TranslatorOption{
		modtl.WithSourceLang(cfg.SourceLang),
		modtl.WithProcessor(proc),
		modtl.WithContext(cfg.Context),
		modtl.WithExcludedTerms(cfg.Exclude),
		modtl.WithGlossary(cfg.Glossary),
		modtl.WithStyle(cfg.TranslationStyle()),
		modtl.WithValidation(cfg.ValidationOptions()),
		modtl.WithBatchSize(cfg.Translator.BatchSize),
		modtl.WithWorkers(cfg.Translator.Workers),
		modtl.WithMaxAttempts(cfg.Translator.MaxAttempts),
		modtl.WithCacheModel(cfg.Provider.Model),
		modtl.WithMetrics(modtl.NewMetrics(registry)),
		modtl.WithLogger(slog.Default()),
	}
	if c != nil {
		defer c.Close()
		opts = append(opts, modtl.WithCache(c))
	}

	translator := modtl.NewTranslator(cfg.TargetLang, p, opts...)
	job := modtl.NewJob(ctx, inputName)
	defer job.Cancel()

	if !f.jsonOutput {
		fmt.Fprintf(stderr, "Translating %s to %s...\n", inputName, cfg.TargetLang)
	}

	start := time.Now()
	result, err := translator.Run(job, input, proc.ContentType())
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	elapsed := time.Since(start)

	if f.reportFile != "" {
		if err := writeReports(f.reportFile, result.Failures); err != nil {
			return err
		}
	}
	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, registry); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	var out io.Writer = stdout
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if f.jsonOutput {
		return outputJSON(out, job, result, elapsed)
	}

	fmt.Fprint(out, result.Content)

	fmt.Fprintf(stderr, "\nDone in %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(stderr, "  Entries found: %d\n", result.TotalEntries)
	fmt.Fprintf(stderr, "  Translated:    %d\n", result.TranslatedCount)
	fmt.Fprintf(stderr, "  Repaired:      %d\n", result.RepairedCount)
	fmt.Fprintf(stderr, "  From cache:    %d\n", result.CachedCount)
	fmt.Fprintf(stderr, "  Kept source:   %d\n", len(result.Failures))
	for _, r := range result.Failures {
		fmt.Fprintf(stderr, "    ! %s\n", r.Error())
	}
	return nil
}

// JSONOutput represents the JSON output format.
type JSONOutput struct {
	JobID           string                       `json:"job_id"`
	Content         string                       `json:"content"`
	TotalEntries    int                          `json:"total_entries"`
	TranslatedCount int                          `json:"translated_count"`
	RepairedCount   int                          `json:"repaired_count"`
	CachedCount     int                          `json:"cached_count"`
	Failures        []*placeholder.FailureReport `json:"failures,omitempty"`
	ElapsedMs       int64                        `json:"elapsed_ms"`
}

func outputJSON(w io.Writer, job *modtl.Job, result *modtl.ProcessedContent, elapsed time.Duration) error {
	out := JSONOutput{
		JobID:           job.ID,
		Content:         result.Content,
		TotalEntries:    result.TotalEntries,
		TranslatedCount: result.TranslatedCount,
		RepairedCount:   result.RepairedCount,
		CachedCount:     result.CachedCount,
		Failures:        result.Failures,
		ElapsedMs:       elapsed.Milliseconds(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

func writeReports(path string, reports []*placeholder.FailureReport) error {
	if reports == nil {
		reports = []*placeholder.FailureReport{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding reports: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}
	return nil
}

// runDryRun lists the entries and their masked form without calling the API.
func runDryRun(w io.Writer, proc modtl.ContentProcessor, input, inputName, targetLang string, jsonOut bool) error {
	_, entries, err := proc.Extract(input)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}
	protector := protect.NewProtector(nil)

	type dryRunEntry struct {
		Key    string `json:"key"`
		Line   int    `json:"line,omitempty"`
		Text   string `json:"text"`
		Masked string `json:"masked"`
		Tokens int    `json:"tokens"`
	}
	type dryRunOutput struct {
		InputFile  string        `json:"input_file"`
		TargetLang string        `json:"target_lang"`
		EntryCount int           `json:"entry_count"`
		Entries    []dryRunEntry `json:"entries"`
	}

	out := dryRunOutput{InputFile: inputName, TargetLang: targetLang, EntryCount: len(entries)}
	for _, e := range entries {
		frag := protector.Protect(e.Text)
		out.Entries = append(out.Entries, dryRunEntry{
			Key:    e.Key,
			Line:   e.Line,
			Text:   e.Text,
			Masked: frag.Masked(),
			Tokens: frag.Len(),
		})
	}

	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "Dry run: %s -> %s\n", inputName, targetLang)
	fmt.Fprintf(w, "Found %d translatable entries:\n\n", len(entries))
	for i, e := range out.Entries {
		fmt.Fprintf(w, "%3d. %s %q\n", i+1, e.Key, truncate(e.Text, 60))
		if e.Tokens > 0 {
			fmt.Fprintf(w, "     Masked: %s\n", e.Masked)
		}
	}
	return nil
}

// runDiff compares new content with a previous version and shows what changed.
func runDiff(w io.Writer, proc modtl.ContentProcessor, newContent, inputName, oldPath, targetLang string, jsonOut bool) error {
	oldData, err := os.ReadFile(oldPath) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return fmt.Errorf("reading previous version: %w", err)
	}

	_, oldEntries, err := proc.Extract(string(oldData))
	if err != nil {
		return fmt.Errorf("parsing previous version: %w", err)
	}
	_, newEntries, err := proc.Extract(newContent)
	if err != nil {
		return fmt.Errorf("parsing new version: %w", err)
	}

	diff := modtl.DiffContentWithContext(oldEntries, newEntries)
	stats := diff.Stats()

	if jsonOut {
		type change struct {
			Key string `json:"key"`
			Old string `json:"old,omitempty"`
			New string `json:"new,omitempty"`
		}
		type diffOutput struct {
			InputFile        string          `json:"input_file"`
			PreviousFile     string          `json:"previous_file"`
			TargetLang       string          `json:"target_lang"`
			Stats            modtl.DiffStats `json:"stats"`
			NeedsTranslation []change        `json:"needs_translation"`
			Removed          []change        `json:"removed,omitempty"`
		}

		out := diffOutput{
			InputFile:        inputName,
			PreviousFile:     filepath.Base(oldPath),
			TargetLang:       targetLang,
			Stats:            stats,
			NeedsTranslation: []change{},
		}
		for _, e := range diff.Added {
			out.NeedsTranslation = append(out.NeedsTranslation, change{Key: e.Key, New: e.Text})
		}
		for _, m := range diff.Modified {
			out.NeedsTranslation = append(out.NeedsTranslation, change{Key: m.New.Key, Old: m.Old.Text, New: m.New.Text})
		}
		for _, e := range diff.Removed {
			out.Removed = append(out.Removed, change{Key: e.Key, Old: e.Text})
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "Diff: %s vs %s\n", inputName, filepath.Base(oldPath))
	fmt.Fprintf(w, "Target language: %s\n\n", targetLang)
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Unchanged: %d\n", stats.Unchanged)
	fmt.Fprintf(w, "  Added:     %d\n", stats.Added)
	fmt.Fprintf(w, "  Removed:   %d\n", stats.Removed)
	fmt.Fprintf(w, "  Modified:  %d\n\n", stats.Modified)

	if !diff.HasChanges() {
		fmt.Fprintf(w, "No changes detected. All translations are up to date.\n")
		return nil
	}

	fmt.Fprintf(w, "Needs translation: %d strings\n\n", len(diff.NeedsTranslation()))
	for _, e := range diff.Added {
		fmt.Fprintf(w, "  + %s %q\n", e.Key, truncate(e.Text, 50))
	}
	for _, m := range diff.Modified {
		fmt.Fprintf(w, "  ~ %s %q -> %q\n", m.New.Key, truncate(m.Old.Text, 30), truncate(m.New.Text, 30))
	}
	for _, e := range diff.Removed {
		fmt.Fprintf(w, "  - %s %q\n", e.Key, truncate(e.Text, 50))
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
