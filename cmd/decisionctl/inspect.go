package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/danielpatrickdp/decisionmaker/internal/logging"
	"github.com/danielpatrickdp/decisionmaker/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// #region inspect-cmd
type inspectOptions struct {
	last        int
	version     string
	active      bool
	transitions int
	jsonOut     bool
	yamlOut     bool
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	o := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show previous decisions and the transition log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.jsonOut && o.yamlOut {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}
			if o.active && o.version != "" {
				return fmt.Errorf("--active and --version are mutually exclusive")
			}
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case o.version != "":
				rec, err := store.FindVersion(o.version)
				if err != nil {
					return err
				}
				return runDetailMode(out, rec, o)
			case o.active:
				rec, err := store.GetCurrent()
				if errors.Is(err, storage.ErrNotFound) {
					_, _ = fmt.Fprintln(out, "no active decision")
					return nil
				}
				if err != nil {
					return err
				}
				return runDetailMode(out, rec, o)
			case o.transitions > 0:
				return runTransitionsMode(out, store, o)
			default:
				return runListMode(out, store, o)
			}
		},
	}
	cmd.Flags().IntVar(&o.last, "last", 20, "show N most recent versions")
	cmd.Flags().StringVar(&o.version, "version", "", "show a single version in full (ID or unique prefix)")
	cmd.Flags().BoolVar(&o.active, "active", false, "show the active version in full")
	cmd.Flags().IntVar(&o.transitions, "transitions", 0, "show N most recent transition log entries")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&o.yamlOut, "yaml", false, "output as YAML")
	return cmd
}

// #endregion inspect-cmd

// #region list-mode
type listRow struct {
	VersionID    string  `json:"version_id" yaml:"version_id"`
	ParentID     string  `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	DecisionText string  `json:"decision_text" yaml:"decision_text"`
	Criteria     int     `json:"criteria" yaml:"criteria"`
	Options      int     `json:"options" yaml:"options"`
	WeightSum    float64 `json:"weight_sum" yaml:"weight_sum"`
	CreatedAt    string  `json:"created_at" yaml:"created_at"`
	Active       bool    `json:"active,omitempty" yaml:"active,omitempty"`
}

func runListMode(out io.Writer, store *storage.Store, o *inspectOptions) error {
	recs, err := store.ListVersions(o.last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(out, "no previous decisions")
		return nil
	}

	active, err := store.GetCurrent()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	rows := make([]listRow, len(recs))
	for i, r := range recs {
		rows[i] = listRow{
			VersionID:    r.VersionID,
			ParentID:     r.ParentID,
			DecisionText: r.Draft.DecisionText,
			Criteria:     len(r.Draft.Criteria),
			Options:      len(r.Draft.Options),
			WeightSum:    r.WeightSum,
			CreatedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Active:       r.VersionID == active.VersionID,
		}
	}

	if o.jsonOut || o.yamlOut {
		return encode(out, rows, o)
	}

	_, _ = fmt.Fprintf(out, "  %-10s  %-10s  %4s  %4s  %6s  %-20s  %s\n",
		"Version", "Parent", "Crit", "Opts", "Sum", "Time", "Decision")
	for _, r := range rows {
		parent := shortID(r.ParentID)
		if parent == "" {
			parent = "-"
		}
		mark := " "
		if r.Active {
			mark = "*"
		}
		_, _ = fmt.Fprintf(out, "%s %-10s  %-10s  %4d  %4d  %6.3f  %-20s  %s\n",
			mark, shortID(r.VersionID), parent, r.Criteria, r.Options, r.WeightSum, r.CreatedAt, r.DecisionText)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode
func runDetailMode(out io.Writer, rec storage.DraftRecord, o *inspectOptions) error {
	if o.jsonOut || o.yamlOut {
		return encode(out, rec, o)
	}

	_, _ = fmt.Fprintf(out, "Version:  %s\n", rec.VersionID)
	if rec.ParentID != "" {
		_, _ = fmt.Fprintf(out, "Parent:   %s\n", rec.ParentID)
	}
	_, _ = fmt.Fprintf(out, "Session:  %s\n", rec.Draft.SessionID)
	_, _ = fmt.Fprintf(out, "Created:  %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))
	_, _ = fmt.Fprintf(out, "Decision: %s\n", rec.Draft.DecisionText)
	_, _ = fmt.Fprintln(out, "Criteria:")
	for _, c := range rec.Draft.Criteria {
		_, _ = fmt.Fprintf(out, "  %-20s %g\n", c.Name, c.Weight)
	}
	_, _ = fmt.Fprintf(out, "  %-20s %g\n", "(sum)", rec.WeightSum)
	if len(rec.Draft.Options) > 0 {
		_, _ = fmt.Fprintln(out, "Options:")
		for _, opt := range rec.Draft.Options {
			_, _ = fmt.Fprintf(out, "  - %s\n", opt.Name)
		}
	}
	return nil
}

// #endregion detail-mode

// #region transitions-mode
type transitionRow struct {
	SessionID string  `json:"session_id" yaml:"session_id"`
	VersionID string  `json:"version_id,omitempty" yaml:"version_id,omitempty"`
	From      string  `json:"from,omitempty" yaml:"from,omitempty"`
	To        string  `json:"to" yaml:"to"`
	Decision  string  `json:"decision" yaml:"decision"`
	Reason    string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	WeightSum float64 `json:"weight_sum" yaml:"weight_sum"`
	CreatedAt string  `json:"created_at" yaml:"created_at"`
}

func runTransitionsMode(out io.Writer, store *storage.Store, o *inspectOptions) error {
	entries, err := logging.ListTransitions(store.DB(), o.transitions)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "no transitions logged")
		return nil
	}

	rows := make([]transitionRow, len(entries))
	for i, e := range entries {
		rows[i] = transitionRow{
			SessionID: e.SessionID,
			VersionID: e.VersionID,
			From:      e.FromPath,
			To:        e.ToPath,
			Decision:  e.Decision,
			Reason:    e.Reason,
			WeightSum: e.WeightSum,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if o.jsonOut || o.yamlOut {
		return encode(out, rows, o)
	}

	_, _ = fmt.Fprintf(out, "%-20s  %-8s  %6s  %-10s  %s\n", "Time", "Decision", "Sum", "Version", "Reason")
	for _, r := range rows {
		version := shortID(r.VersionID)
		if version == "" {
			version = "-"
		}
		_, _ = fmt.Fprintf(out, "%-20s  %-8s  %6.3f  %-10s  %s\n", r.CreatedAt, r.Decision, r.WeightSum, version, r.Reason)
	}
	return nil
}

// #endregion transitions-mode

// #region helpers
func encode(out io.Writer, v interface{}, o *inspectOptions) error {
	if o.yamlOut {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
