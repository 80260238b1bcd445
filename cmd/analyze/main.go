// Command analyze runs one or more combat logs through the analysis pipeline
// in-process and prints the reports. The input is a request object or an
// array of them, read from the file argument or stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	service "github.com/okian/fightlog/internal/app"
	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/domain/results"
	"github.com/okian/fightlog/pkg/logger"
	"github.com/tidwall/gjson"
)

var errNoInput = errors.New("no input")

type report struct {
	ID     string          `json:"id"`
	Result *results.Result `json:"result,omitempty"`
	Stats  dispatch.Stats  `json:"stats"`
	Error  string          `json:"error,omitempty"`
}

func main() {
	var (
		profile = flag.String("profile", "", "Profile to use when a request names none")
		timeout = flag.Duration("timeout", 30*time.Second, "Per-log analysis timeout")
		workers = flag.Int("workers", runtime.NumCPU(), "Logs analyzed concurrently")
		format  = flag.String("format", "json", "Output format: json or text")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	// logs go to stderr so stdout carries only reports
	if err := logger.InitJSON(os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.Get().Named("analyze")

	data, err := readInput(flag.Arg(0))
	if err != nil {
		log.Error(ctx, "failed to read input", logger.Error(err))
		os.Exit(1)
	}
	jobs, err := parseJobs(data)
	if err != nil {
		log.Error(ctx, "failed to parse input", logger.Error(err))
		os.Exit(1)
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithDefaultProfile(*profile),
		service.WithRunTimeout(*timeout),
		service.WithWorkerCount(*workers),
	)
	reports := analyze(ctx, svc, jobs)

	if *format == "text" {
		err = writeText(os.Stdout, reports)
	} else {
		err = writeJSON(os.Stdout, reports, len(jobs) == 1)
	}
	if err != nil {
		log.Error(ctx, "failed to write reports", logger.Error(err))
		os.Exit(1)
	}
	for _, r := range reports {
		if r.Error != "" {
			os.Exit(2)
		}
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path) //nolint:gosec // path comes from the operator
}

// parseJobs accepts a single request object or an array of them.
func parseJobs(data []byte) ([]model.Job, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("input is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	switch {
	case root.IsArray():
		var jobs []model.Job
		if err := json.Unmarshal(data, &jobs); err != nil {
			return nil, err
		}
		if len(jobs) == 0 {
			return nil, errNoInput
		}
		return jobs, nil
	case root.IsObject():
		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, err
		}
		return []model.Job{job}, nil
	default:
		return nil, errNoInput
	}
}

func analyze(ctx context.Context, svc *service.Service, jobs []model.Job) []report {
	outcomes := svc.AnalyzeBatch(ctx, jobs)
	out := make([]report, len(outcomes))
	for i, o := range outcomes {
		out[i] = report{ID: o.ID, Result: o.Result, Stats: o.Stats}
		if o.Err != nil {
			out[i].Error = o.Err.Error()
		}
	}
	return out
}

func writeJSON(w io.Writer, reports []report, single bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if single {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

func writeText(w io.Writer, reports []report) error {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		name := r.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		fmt.Fprintf(w, "== %s\n", name)
		if r.Error != "" {
			fmt.Fprintf(w, "error: %s\n", r.Error)
			continue
		}
		s := r.Stats
		fmt.Fprintf(w, "events: %d real, %d synthetic, %d delivered, %d filtered, %d dropped\n",
			s.Real, s.Synthetic, s.Delivered, s.Filtered, s.Dropped)
		for _, m := range r.Result.Degraded {
			fmt.Fprintf(w, "degraded: %s\n", m)
		}
		for _, sg := range r.Result.Suggestions {
			fmt.Fprintf(w, "[%s] %s (%s; %s)\n", sg.Importance, sg.Text, sg.Actual, sg.Recommended)
		}
		for _, st := range r.Result.SortedStatistics() {
			fmt.Fprintf(w, "%s: %s\n", st.Label, st.Value)
			for _, it := range st.Items {
				fmt.Fprintf(w, "  %s: %s\n", it.Label, it.Value)
			}
		}
	}
	return nil
}
