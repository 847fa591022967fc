package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ZaguanLabs/modtl/placeholder"
	"github.com/ZaguanLabs/modtl/protect"
	"github.com/spf13/cobra"
)

func newProtectCmd(g *globals) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "protect [text]",
		Short: "Show how a string is masked before it is sent to the provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := argOrStdin(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			frag := protect.NewProtector(nil).Protect(text)
			tokens := frag.TokenMap().Tokens
			out := cmd.OutOrStdout()

			if jsonOut {
				type token struct {
					Marker string        `json:"marker"`
					Class  protect.Class `json:"class"`
					Value  string        `json:"value"`
				}
				doc := struct {
					Hash   string  `json:"hash"`
					Masked string  `json:"masked"`
					Tokens []token `json:"tokens"`
				}{Hash: frag.Hash(), Masked: frag.Masked(), Tokens: []token{}}
				for _, t := range tokens {
					doc.Tokens = append(doc.Tokens, token{Marker: t.Marker, Class: t.Class, Value: t.Value})
				}
				return encodeJSON(out, doc)
			}

			fmt.Fprintln(out, frag.Masked())
			for _, t := range tokens {
				fmt.Fprintf(out, "  %-22s %-14s %q\n", t.Marker, t.Class, t.Value)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

type checkFlags struct {
	source    string
	candidate string
	syntax    string
	noAutofix bool
	jsonOut   bool
}

// errRejected is returned when check rejects the candidate.
var errRejected = errors.New("candidate rejected")

func newCheckCmd(g *globals) *cobra.Command {
	f := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a masked model reply against its source and restore it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), g, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.source, "source", "", "raw source string")
	fl.StringVar(&f.candidate, "candidate", "", "masked translation as returned by the model")
	fl.StringVar(&f.syntax, "syntax", "", "structural check: json, yaml, toml, xml, icu, ini, csv, markdown, properties, lua (default: detect)")
	fl.BoolVar(&f.noAutofix, "no-autofix", false, "disable the repair pass")
	fl.BoolVar(&f.jsonOut, "json", false, "output as JSON")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("candidate")
	return cmd
}

func runCheck(out io.Writer, g *globals, f *checkFlags) error {
	syntax := placeholder.DetectSyntax(f.source)
	if f.syntax != "" {
		s, err := placeholder.ParseSyntax(f.syntax)
		if err != nil {
			return err
		}
		syntax = s
	}

	opts := g.cfg.ValidationOptions()
	if f.noAutofix {
		opts.AutoFix = false
	}

	frag := protect.NewProtector(nil).Protect(f.source)
	ext := placeholder.NewExtractor()
	seg := ext.NewSegment(placeholder.Locator{Key: "check"}, f.source, frag.Masked(), syntax)

	res, err := placeholder.NewValidator(opts, ext).Validate(seg, f.candidate)
	if err != nil {
		return reject(out, err, f.jsonOut)
	}

	restored, err := protect.Restore(frag, res.Text)
	if err != nil {
		return reject(out, err, f.jsonOut)
	}
	if err := placeholder.CheckAgainstSource(syntax, f.source, restored); err != nil {
		return reject(out, placeholder.ReportStructure(seg, restored, err), f.jsonOut)
	}

	if f.jsonOut {
		return encodeJSON(out, struct {
			Restored     string                `json:"restored"`
			Repaired     bool                  `json:"repaired"`
			OrderChanged bool                  `json:"order_changed"`
			Autofix      []placeholder.FixStep `json:"autofix,omitempty"`
		}{restored, res.Repaired, res.OrderChanged, res.Steps})
	}

	fmt.Fprintln(out, restored)
	for _, s := range res.Steps {
		fmt.Fprintf(out, "  repaired: %s %s\n", s.Name, strings.Join(s.Tokens, " "))
	}
	if res.OrderChanged {
		fmt.Fprintln(out, "  note: placeholder order changed")
	}
	return nil
}

func reject(out io.Writer, err error, jsonOut bool) error {
	var report *placeholder.FailureReport
	if errors.As(err, &report) {
		if jsonOut {
			if encErr := encodeJSON(out, report); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintf(out, "rejected: %s\n", report.Error())
			if report.Repaired != "" {
				fmt.Fprintf(out, "  after autofix: %s\n", report.Repaired)
			}
		}
	}
	return fmt.Errorf("%w: %v", errRejected, err)
}

func argOrStdin(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
