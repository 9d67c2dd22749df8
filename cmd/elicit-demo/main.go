// Command elicit-demo runs one elicitation session in the terminal, either
// answering queries interactively or with a simulated decision-maker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
	"github.com/MikeSquared-Agency/Elicit/internal/lpsolve"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/polytope"
	"github.com/MikeSquared-Agency/Elicit/internal/regret"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

// candidateFile is the YAML layout accepted by -candidates.
type candidateFile struct {
	Name         string       `yaml:"name"`
	Criteria     []string     `yaml:"criteria"`
	Alternatives []store.Item `yaml:"alternatives"`
}

var defaultCandidates = candidateFile{
	Name: "example",
	Alternatives: []store.Item{
		{Label: "a", Scores: []float64{0.5, 0.2}},
		{Label: "b", Scores: []float64{0.7, 0.1}},
		{Label: "c", Scores: []float64{0.6, 0.3}},
	},
}

const defaultMaxQueries = 50

type options struct {
	candidates string
	oracle     string
	weights    string
	seed       uint64
	remoteURL  string
	epsilon    float64
	maxQueries int
	prune      bool
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.candidates, "candidates", "", "YAML file with labelled alternatives (default: built-in example)")
	flag.StringVar(&opts.oracle, "oracle", "prompt", "decision-maker: prompt, utility, random or remote")
	flag.StringVar(&opts.weights, "weights", "", "comma-separated hidden weights for -oracle utility")
	flag.Uint64Var(&opts.seed, "seed", 1, "seed for -oracle random")
	flag.StringVar(&opts.remoteURL, "remote-url", os.Getenv("ELICIT_ORACLE_URL"), "decision-maker service for -oracle remote")
	flag.Float64Var(&opts.epsilon, "epsilon", 0.1, "stop once minimax regret is below this")
	flag.IntVar(&opts.maxQueries, "max-queries", defaultMaxQueries, "query budget, 0 for unlimited")
	flag.BoolVar(&opts.prune, "prune", false, "drop dominated alternatives before starting")
	flag.BoolVar(&opts.verbose, "v", false, "log solver activity to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out, errOut io.Writer) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	cf, err := loadCandidates(opts.candidates)
	if err != nil {
		return err
	}
	catalog := &store.Catalog{Name: cf.Name, Criteria: cf.Criteria, Alternatives: cf.Alternatives}
	if err := catalog.Validate(); err != nil {
		return err
	}
	set, err := catalog.CandidateSet()
	if err != nil {
		return err
	}
	if opts.prune {
		if set, err = scoring.PruneDominated(set); err != nil {
			return err
		}
	}

	engine := regret.NewEngine(lpsolve.NewSimplex(0, 0), regret.Options{Workers: 4, Logger: logger})
	omega, err := polytope.Initial(set.Dim())
	if err != nil {
		return err
	}
	initial, err := engine.MinimaxRegret(ctx, set, omega)
	if err != nil {
		return err
	}
	labels := catalog.Labels()
	name := func(a scoring.Alternative) string {
		if l, ok := labels[a.String()]; ok {
			return l + " " + a.String()
		}
		return a.String()
	}
	fmt.Fprintf(out, "%d alternatives over %d criteria\n", set.Len(), set.Dim())
	fmt.Fprintf(out, "initial minimax regret %.4f: %s against %s\n", initial.MaxRegret, name(initial.XStar), name(initial.YStar))

	id := uuid.New()
	dm, err := buildOracle(opts, id, labels, in, out)
	if err != nil {
		return err
	}

	sess, err := elicit.NewSession(engine, set, dm, elicit.Config{Epsilon: opts.epsilon, MaxQueries: opts.maxQueries},
		elicit.WithID(id),
		elicit.WithLogger(logger),
		elicit.WithListener(&transcript{out: out, name: name}),
	)
	if err != nil {
		return err
	}
	result, err := sess.Run(ctx)
	if err != nil {
		if errors.Is(err, elicit.ErrQueryBudgetExhausted) {
			rounds := sess.Rounds()
			last := rounds[len(rounds)-1]
			fmt.Fprintf(out, "budget exhausted; best so far %s with regret %.4f\n", name(last.XStar), last.MaxRegret)
		}
		return err
	}
	fmt.Fprintf(out, "recommendation: %s (max regret %.4f after %d queries)\n",
		name(result.Recommendation), result.MaxRegret, result.Queries)
	return nil
}

func loadCandidates(path string) (candidateFile, error) {
	if path == "" {
		return defaultCandidates, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return candidateFile{}, fmt.Errorf("read candidates: %w", err)
	}
	var cf candidateFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return candidateFile{}, fmt.Errorf("parse candidates: %w", err)
	}
	if cf.Name == "" {
		cf.Name = path
	}
	return cf, nil
}

func buildOracle(opts options, id uuid.UUID, labels map[string]string, in io.Reader, out io.Writer) (elicit.Oracle, error) {
	if opts.oracle == "prompt" {
		p := oracle.NewPrompt(in, out)
		p.Labels = labels
		return p, nil
	}
	spec := oracle.Spec{Kind: opts.oracle, Seed: opts.seed}
	if opts.weights != "" {
		w, err := parseWeights(opts.weights)
		if err != nil {
			return nil, err
		}
		spec.Weights = w
	}
	return spec.Build(oracle.Remote{URL: opts.remoteURL, Token: os.Getenv("ELICIT_ORACLE_TOKEN")}, id.String())
}

func parseWeights(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	w := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %d: %w", i, err)
		}
		w[i] = v
	}
	return w, nil
}

// transcript prints each query and answer as the session runs.
type transcript struct {
	elicit.NopListener
	out  io.Writer
	name func(scoring.Alternative) string
}

func (t *transcript) QueryPosed(_ uuid.UUID, r elicit.Round) {
	fmt.Fprintf(t.out, "round %d: regret %.4f, asking %s vs %s\n", r.Iteration, r.MaxRegret, t.name(r.XStar), t.name(r.YStar))
}

func (t *transcript) AnswerRecorded(_ uuid.UUID, r elicit.Round) {
	fmt.Fprintf(t.out, "  preferred %s\n", t.name(r.Answer))
}
