package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/decisionmaker/internal/flow"
	"github.com/danielpatrickdp/decisionmaker/internal/storage"
	"github.com/danielpatrickdp/decisionmaker/internal/trail"
)

const historyLimit = 10

// versionArchive is the part of the draft archive the REPL browses.
type versionArchive interface {
	ListVersions(limit int) ([]storage.DraftRecord, error)
	GetCurrent() (storage.DraftRecord, error)
	FindVersion(prefix string) (storage.DraftRecord, error)
	Rollback(versionID string) error
}

// #region repl
type repl struct {
	flow    *flow.Flow
	history versionArchive
	out     io.Writer
}

func (r *repl) loop(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, "DecisionMaker ready. Type 'help' for commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		quit, err := r.exec(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if quit {
			break
		}
	}
	return scanner.Err()
}

// exec runs one command line. quit is true when the session should end.
func (r *repl) exec(ctx context.Context, line string) (quit bool, err error) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true, nil
	case "help":
		r.help()
	case "decision":
		if rest == "" {
			rest = flow.DefaultDecisionText
		}
		return false, r.flow.SubmitDecision(rest)
	case "criterion":
		name, weight, err := splitNameValue(rest)
		if err != nil {
			return false, err
		}
		c, err := r.flow.AddCriterion(name, weight)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "added %s (%g)\n", c.Name, c.Weight)
		r.printSum()
	case "weight":
		idx, value, err := parseIndexValue(rest)
		if err != nil {
			return false, err
		}
		r.flow.SetWeight(idx, value)
		r.printSum()
	case "remove":
		idx, err := parseIndex(rest)
		if err != nil {
			return false, err
		}
		r.flow.RemoveCriterion(idx)
		r.printSum()
	case "proceed":
		d, err := r.flow.ProceedFromCriteria(ctx)
		if err != nil {
			return false, err
		}
		if !d.Proceed() {
			fmt.Fprintln(r.out, r.flow.Warning())
			fmt.Fprintf(r.out, "(%s)\n", d.Reason)
		}
	case "option":
		o, err := r.flow.SubmitOption(rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "added option %s\n", o.Name)
	case "show":
		r.show()
	case "trail":
		r.printTrail()
	case "back":
		if !r.flow.Back() {
			fmt.Fprintln(r.out, "nothing to go back to")
		}
	case "home":
		r.flow.Home()
	case "go":
		return false, r.goTo(rest)
	case "history":
		return false, r.printHistory()
	case "reopen":
		return false, r.reopen(rest)
	case "reset":
		r.flow.Reset()
		fmt.Fprintln(r.out, "started a new decision")
	case "whoami", "header":
		r.printHeader()
	case "signout":
		err := r.flow.SignOut(ctx)
		r.printHeader()
		return false, err
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return false, nil
}

// #endregion repl

// #region output
func (r *repl) help() {
	fmt.Fprintln(r.out, `commands:
  decision [text]         state the decision (default "`+flow.DefaultDecisionText+`")
  criterion <name> <w>    add a criterion with weight w
  weight <n> <w>          set weight of criterion n (1-based)
  remove <n>              remove criterion n
  proceed                 continue to options if the weights sum to 1
  option <name>           add an option
  show | trail | history  print draft, breadcrumbs, previous decisions
  reopen <version>        make a previous decision active and edit it
  go <path>               follow a header link
  back | home | reset     navigate or start over
  whoami | signout        auth state
  quit`)
}

func (r *repl) printSum() {
	d := r.flow.Decision()
	fmt.Fprintf(r.out, "sum=%g %s\n", d.Sum, d.Action)
}

func (r *repl) show() {
	d := r.flow.Draft()
	fmt.Fprintf(r.out, "Decision: %s\n", d.DecisionText)
	fmt.Fprintln(r.out, "Criteria:")
	for i, c := range d.Criteria {
		fmt.Fprintf(r.out, "  %d. %-20s %g\n", i+1, c.Name, c.Weight)
	}
	r.printSum()
	if w := r.flow.Warning(); w != "" {
		fmt.Fprintln(r.out, w)
	}
	if len(d.Options) > 0 {
		fmt.Fprintln(r.out, "Options:")
		for _, o := range d.Options {
			fmt.Fprintf(r.out, "  - %s\n", o.Name)
		}
	}
}

func (r *repl) printTrail() {
	steps := r.flow.Trail()
	if len(steps) == 0 {
		fmt.Fprintln(r.out, "(empty)")
		return
	}
	labels := make([]string, len(steps))
	for i, s := range steps {
		labels[i] = s.Label
	}
	fmt.Fprintln(r.out, strings.Join(labels, " > "))
}

func (r *repl) printHeader() {
	h := r.flow.Header()
	if !h.Authenticated {
		labels := make([]string, len(h.AuthLinks))
		for i, l := range h.AuthLinks {
			labels[i] = l.Label
		}
		fmt.Fprintf(r.out, "[signed out] %s\n", strings.Join(labels, " | "))
		return
	}
	fmt.Fprintf(r.out, "[%s] %s\n", h.Initial, h.DisplayName)
}

func (r *repl) printHistory() error {
	if r.history == nil {
		return errors.New("no archive configured")
	}
	recs, err := r.history.ListVersions(historyLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(r.out, "no previous decisions")
		return nil
	}
	active, err := r.history.GetCurrent()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	for _, rec := range recs {
		mark := " "
		if rec.VersionID == active.VersionID {
			mark = "*"
		}
		fmt.Fprintf(r.out, "%s %s  %s  %d criteria  %s\n",
			mark, shortID(rec.VersionID), rec.CreatedAt.Format("2006-01-02 15:04"),
			len(rec.Draft.Criteria), rec.Draft.DecisionText)
	}
	return nil
}

// reopen points the archive back at a previous version and loads it, so the
// next proceed records a child of that version.
func (r *repl) reopen(prefix string) error {
	if r.history == nil {
		return errors.New("no archive configured")
	}
	if prefix == "" {
		return errors.New("usage: reopen <version>")
	}
	rec, err := r.history.FindVersion(prefix)
	if err != nil {
		return err
	}
	if err := r.history.Rollback(rec.VersionID); err != nil {
		return err
	}
	r.flow.Reopen(rec.Draft)
	fmt.Fprintf(r.out, "reopened %s: %s\n", shortID(rec.VersionID), rec.Draft.DecisionText)
	return nil
}

func (r *repl) goTo(path string) error {
	for _, item := range trail.HeaderNavItems {
		if item.Path != path {
			continue
		}
		r.flow.Navigate(item.Path, item.Label)
		if item.Path == trail.PathPreviousDecision {
			return r.printHistory()
		}
		return nil
	}
	return fmt.Errorf("no header link for %q", path)
}

// #endregion output

// #region parsing
// splitNameValue splits "Fuel economy 0.3" into a name and trailing number.
func splitNameValue(s string) (string, float64, error) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return "", 0, errors.New("usage: criterion <name> <weight>")
	}
	v, err := strconv.ParseFloat(s[i+1:], 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse weight %q: %w", s[i+1:], err)
	}
	return strings.TrimSpace(s[:i]), v, nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse index %q: %w", s, err)
	}
	return n - 1, nil
}

func parseIndexValue(s string) (int, float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, errors.New("usage: weight <n> <value>")
	}
	idx, err := parseIndex(fields[0])
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse weight %q: %w", fields[1], err)
	}
	return idx, v, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion parsing
