// Command reconcile is the CLI front-end for the state-reconciliation
// engine, shaped after cmd/graft/main.go's goptions-based verb dispatch:
// plan prints a serialized plan, run drives an Agent to completion
// in-process, and diff prints the engine's own leaf ops alongside a
// dyff/ytbx human-readable rendering of the same two documents.
package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
	"github.com/mattn/go-isatty"
	"github.com/starkandwayne/goutils/ansi"
	"github.com/voxelbrain/goptions"

	"github.com/wayneeseguin/reconcile/internal/agent"
	"github.com/wayneeseguin/reconcile/internal/config"
	"github.com/wayneeseguin/reconcile/internal/generictask"
	"github.com/wayneeseguin/reconcile/internal/logx"
	"github.com/wayneeseguin/reconcile/internal/planner"
	"github.com/wayneeseguin/reconcile/internal/state"
)

// Version holds the current version of reconcile.
var Version = "(development)"

var printfStdOut = func(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}

var exit = func(code int) { os.Exit(code) }

var usage = func() {
	goptions.PrintHelp()
	exit(1)
}

func envFlag(varname string) bool {
	val := os.Getenv(varname)
	return val != "" && strings.ToLower(val) != "false" && val != "0"
}

type reconcileOpts struct {
	Config string             `goptions:"--config, description='Path to a reconcile.yaml config file'"`
	Help   bool               `goptions:"--help, -h"`
	Files  goptions.Remainder `goptions:"description='<state.yaml> <target.yaml>'"`
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		logx.WARN("loading config %s: %s; using defaults", path, err.Error())
		return config.DefaultConfig()
	}
	return cfg
}

func readState(paths []string) (state.Value, state.Target, error) {
	if len(paths) != 2 {
		return state.Value{}, state.Target{}, fmt.Errorf("expected <state.yaml> <target.yaml>, got %d args", len(paths))
	}
	sdoc, err := os.ReadFile(paths[0])
	if err != nil {
		return state.Value{}, state.Target{}, fmt.Errorf("reading %s: %w", paths[0], err)
	}
	tdoc, err := os.ReadFile(paths[1])
	if err != nil {
		return state.Value{}, state.Target{}, fmt.Errorf("reading %s: %w", paths[1], err)
	}
	s, err := state.DecodeValue(sdoc)
	if err != nil {
		return state.Value{}, state.Target{}, fmt.Errorf("decoding %s: %w", paths[0], err)
	}
	t, err := state.DecodeTarget(tdoc)
	if err != nil {
		return state.Value{}, state.Target{}, fmt.Errorf("decoding %s: %w", paths[1], err)
	}
	return s, t, nil
}

func main() {
	var options struct {
		Debug   bool   `goptions:"-D, --debug, description='Enable debugging'"`
		Trace   bool   `goptions:"-T, --trace, description='Enable trace mode debugging (very verbose)'"`
		Version bool   `goptions:"-v, --version, description='Display version information'"`
		Color   string `goptions:"--color, description='Control color output (on/off/auto, default: auto)'"`
		Action  goptions.Verbs
		Plan    reconcileOpts `goptions:"plan"`
		Run     reconcileOpts `goptions:"run"`
		Diff    reconcileOpts `goptions:"diff"`
	}

	if err := goptions.Parse(&options); err != nil {
		usage()
		return
	}

	if envFlag("RECONCILE_DEBUG") || options.Debug {
		logx.SetDebug(true)
	}
	if envFlag("RECONCILE_TRACE") || options.Trace {
		logx.SetTrace(true)
	}

	if options.Version {
		printfStdOut("%s - Version %s\n", os.Args[0], Version)
		exit(0)
		return
	}

	shouldEnableColor := false
	switch options.Color {
	case "on":
		shouldEnableColor = true
	case "off":
		shouldEnableColor = false
	case "auto", "":
		shouldEnableColor = isatty.IsTerminal(os.Stdout.Fd())
	default:
		logx.ERROR("invalid --color option: %s; must be 'on', 'off', or 'auto'", options.Color)
		exit(1)
		return
	}
	ansi.Color(shouldEnableColor)

	switch options.Action {
	case "plan":
		if options.Plan.Help {
			usage()
			return
		}
		runPlan(options.Plan)
	case "run":
		if options.Run.Help {
			usage()
			return
		}
		runAgent(options.Run)
	case "diff":
		if options.Diff.Help {
			usage()
			return
		}
		runDiff(options.Diff)
	default:
		usage()
		return
	}
	exit(0)
}

func runPlan(opts reconcileOpts) {
	s, t, err := readState(opts.Files)
	if err != nil {
		logx.ERROR("%s", err.Error())
		exit(2)
		return
	}
	cfg := loadConfig(opts.Config)
	tasks := generictask.ForTarget(s, t)

	plan, stats, err := planner.FindPlan(context.Background(), s, t, tasks, cfg.PlannerOptions())
	if err != nil {
		logx.ERROR("no plan found: %s", err.Error())
		exit(2)
		return
	}
	printfStdOut("%s", planner.Serialize(plan))
	logx.DEBUG("tasksConsidered=%d methodExpansions=%d elapsedMs=%d",
		stats.TasksConsidered, stats.MethodExpansions, stats.ElapsedMs)
}

func runAgent(opts reconcileOpts) {
	s, t, err := readState(opts.Files)
	if err != nil {
		logx.ERROR("%s", err.Error())
		exit(2)
		return
	}
	cfg := loadConfig(opts.Config)
	tasks := generictask.ForTarget(s, t)

	a := agent.New(s, tasks, cfg.AgentOptions())
	defer a.Stop()

	events, unsubscribe := a.On()
	defer unsubscribe()
	done := make(chan struct{})
	go func() {
		for ev := range events {
			printEvent(ev)
			if ev.Kind == agent.EventSuccess || ev.Kind == agent.EventFailure {
				close(done)
				return
			}
		}
	}()

	a.Seek(t)

	select {
	case <-done:
	case <-time.After(60 * time.Second):
		logx.ERROR("timed out waiting for agent to settle")
		exit(2)
		return
	}

	res, err := a.Wait(context.Background())
	if err != nil || !res.Success {
		exit(1)
		return
	}
}

func printEvent(ev agent.Event) {
	if ev.Instruction != nil {
		logx.INFO("%s %s", ev.Kind.String(), ev.Instruction.Path.String())
		return
	}
	if ev.Cause != nil {
		logx.INFO("%s: %s", ev.Kind.String(), ev.Cause.Error())
		return
	}
	logx.INFO("%s", ev.Kind.String())
}

func runDiff(opts reconcileOpts) {
	if len(opts.Files) != 2 {
		usage()
		return
	}
	s, t, err := readState(opts.Files)
	if err != nil {
		logx.ERROR("%s", err.Error())
		exit(2)
		return
	}
	for _, op := range state.Diff(s, t) {
		printfStdOut("%s %s\n", op.Kind.String(), op.Path.String())
	}

	report, differing, err := diffFiles(opts.Files)
	if err != nil {
		logx.ERROR("%s", err.Error())
		exit(2)
		return
	}
	printfStdOut("%s\n", report)
	if differing {
		exit(1)
	}
}

// diffFiles renders a human-friendly side-by-side comparison of the two
// YAML documents via dyff/ytbx, the same presentation layer cmd/graft's
// --diff verb uses — a distinct notion of "diff" from state.Diff's
// JSON-pointer ops, kept strictly as a display convenience.
func diffFiles(paths []string) (string, bool, error) {
	from, to, err := ytbx.LoadFiles(paths[0], paths[1])
	if err != nil {
		return "", false, err
	}
	report, err := dyff.CompareInputFiles(from, to)
	if err != nil {
		return "", false, err
	}
	reportWriter := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: false,
		NoTableStyle:      false,
		OmitHeader:        true,
	}
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	reportWriter.WriteReport(out)
	out.Flush()
	return buf.String(), len(report.Diffs) > 0, nil
}
