package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/paultendo/namespace-guard-sub000/pkg/attackgen"
	"github.com/paultendo/namespace-guard-sub000/pkg/calibrate"
	"github.com/paultendo/namespace-guard-sub000/pkg/config"
	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/distance"
	"github.com/paultendo/namespace-guard-sub000/pkg/drift"
	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

const Version = "0.1.0"

func main() {
	setupLogging()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "risk":
		os.Exit(runRisk(os.Args[2:]))
	case "attack-gen":
		os.Exit(runAttackGen(os.Args[2:]))
	case "calibrate":
		os.Exit(runCalibrate(os.Args[2:]))
	case "drift":
		os.Exit(runDrift(os.Args[2:]))
	case "recommend":
		os.Exit(runRecommend(os.Args[2:]))
	case "serve":
		runServe(os.Args[2:])
	case "version":
		fmt.Printf("nsguard v%s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "nsguard: unknown subcommand %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func setupLogging() {
	cfg := config.NewDefaultConfig()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
}

func printUsage() {
	fmt.Printf("nsguard v%s - anti-impersonation risk engine for identifiers\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  nsguard risk <identifier> [flags]     Score an identifier against protected targets")
	fmt.Println("  nsguard attack-gen <target> [flags]   Enumerate and score adversarial variants")
	fmt.Println("  nsguard calibrate <dataset.json>      Fit warn/block thresholds to a labeled dataset")
	fmt.Println("  nsguard drift [dataset.json]          Compare decisions across mapping variants")
	fmt.Println("  nsguard recommend <dataset.json>      Calibrated thresholds plus a CI drift gate")
	fmt.Println("  nsguard serve [flags]                 HTTP API mode")
	fmt.Println("  nsguard version                       Show version")
	fmt.Println("")
	fmt.Println("Run any subcommand with -h for its flags.")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  NSGUARD_PROTECT          Comma-separated default protected targets")
	fmt.Println("  NSGUARD_VARIANT          Mapping variant: filtered (default) or full")
	fmt.Println("  NSGUARD_WARN_THRESHOLD   Default warn threshold (25)")
	fmt.Println("  NSGUARD_BLOCK_THRESHOLD  Default block threshold (60)")
	fmt.Println("  NSGUARD_LISTEN           Serve mode bind address (:8089)")
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("encode output")
		return
	}
	fmt.Println(string(out))
}

func fail(msg string, err error) int {
	log.Error().Err(err).Msg(msg)
	fmt.Fprintf(os.Stderr, "nsguard: %s: %v\n", msg, err)
	return 1
}

// ============================================================================
// risk
// ============================================================================

func runRisk(args []string) int {
	fs := flag.NewFlagSet("risk", flag.ExitOnError)
	cfg := config.NewDefaultConfig()
	protect := fs.String("protect", strings.Join(cfg.Protect, ","), "comma-separated protected targets")
	warn := fs.Float64("warn-threshold", cfg.WarnThreshold, "warn at or above this score")
	block := fs.Float64("block-threshold", cfg.BlockThreshold, "block at or above this score")
	maxMatches := fs.Int("max-matches", cfg.MaxMatches, "cap on presented matches")
	failOn := fs.String("fail-on", "block", "exit nonzero when the action reaches this level (block|warn)")
	variant := fs.String("map", cfg.Variant, "mapping variant (filtered|full)")
	weightsPath := fs.String("weights", cfg.WeightsPath, "visual-weight YAML overlay")
	asJSON := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: nsguard risk <identifier> [flags]")
		return 2
	}
	if *failOn != string(risk.ActionBlock) && *failOn != string(risk.ActionWarn) {
		return fail("invalid --fail-on", fmt.Errorf("want block or warn, got %q", *failOn))
	}

	v, err := confusables.ParseVariant(*variant)
	if err != nil {
		return fail("invalid --map", err)
	}
	opts := risk.Options{
		Protect:         splitList(*protect),
		IncludeReserved: cfg.IncludeReserved,
		WarnThreshold:   warn,
		BlockThreshold:  block,
		MaxMatches:      *maxMatches,
		Variant:         v,
	}
	if *weightsPath != "" {
		w, err := distance.LoadVisualWeights(*weightsPath)
		if err != nil {
			return fail("load visual weights", err)
		}
		opts.Weights = w
	}

	a := risk.Check(fs.Arg(0), opts)
	if *asJSON {
		printJSON(a)
	} else {
		printAssessment(a)
	}

	failed := a.Action == risk.ActionBlock ||
		(*failOn == string(risk.ActionWarn) && a.Action == risk.ActionWarn)
	if failed {
		return 1
	}
	return 0
}

func printAssessment(a risk.Assessment) {
	fmt.Printf("identifier:  %s\n", a.Input)
	if a.Normalized != a.Input {
		fmt.Printf("normalized:  %s\n", a.Normalized)
	}
	fmt.Printf("score:       %.1f\n", a.Score)
	fmt.Printf("action:      %s\n", a.Action)
	fmt.Printf("level:       %s\n", a.Level)
	fmt.Printf("format:      valid=%v\n", a.FormatValid)
	if len(a.Reasons) > 0 {
		fmt.Printf("reasons:     %s\n", joinReasons(a.Reasons))
	}
	if len(a.Matches) > 0 {
		fmt.Printf("matches (%d of %d):\n", len(a.Matches), a.TotalMatches)
		for _, m := range a.Matches {
			fmt.Printf("  %-24s score=%5.1f distance=%.3f skeleton=%v\n",
				m.Target, m.Score, m.Distance, m.SkeletonEqual)
		}
	}
}

func joinReasons(reasons []risk.Reason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// ============================================================================
// attack-gen
// ============================================================================

func runAttackGen(args []string) int {
	fs := flag.NewFlagSet("attack-gen", flag.ExitOnError)
	cfg := config.NewDefaultConfig()
	mode := fs.String("mode", string(attackgen.ModeEvasion), "generation mode (evasion|impersonation)")
	variant := fs.String("map", cfg.Variant, "mapping variant for seed scoring (filtered|full)")
	maxCandidates := fs.Int("max-candidates", attackgen.DefaultMaxCandidates, "cap on scored candidates")
	maxEdits := fs.Int("max-edits", 1, "1 or 2 simultaneous edits")
	maxPerChar := fs.Int("max-per-char", attackgen.DefaultMaxPerChar, "replacement bucket size per character")
	noIgnorables := fs.Bool("no-ignorables", false, "skip zero-width insertion seeds")
	preview := fs.Int("preview", 10, "candidates shown in human output")
	asJSON := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: nsguard attack-gen <target> [flags]")
		return 2
	}

	m, err := attackgen.ParseMode(*mode)
	if err != nil {
		return fail("invalid --mode", err)
	}
	v, err := confusables.ParseVariant(*variant)
	if err != nil {
		return fail("invalid --map", err)
	}

	seeds, stats, err := attackgen.Generate(fs.Arg(0), attackgen.Options{
		Mode:          m,
		MaxEdits:      *maxEdits,
		MaxPerChar:    *maxPerChar,
		NoIgnorables:  *noIgnorables,
		MaxCandidates: *maxCandidates,
		Variant:       v,
		Risk: risk.Options{
			WarnThreshold:  risk.Threshold(cfg.WarnThreshold),
			BlockThreshold: risk.Threshold(cfg.BlockThreshold),
		},
	})
	if err != nil {
		return fail("attack generation", err)
	}

	if *asJSON {
		printJSON(struct {
			Stats attackgen.Stats  `json:"stats"`
			Seeds []attackgen.Seed `json:"seeds"`
		}{stats, seeds})
		return 0
	}

	fmt.Printf("target:      %s\n", stats.Target)
	fmt.Printf("mode:        %s\n", stats.Mode)
	fmt.Printf("generated:   %d (%d unique, %d scored)\n", stats.Generated, stats.Unique, stats.Returned)
	fmt.Printf("bypasses:    %d\n", stats.Bypasses)
	if stats.Truncated {
		fmt.Println("note:        candidate list truncated by cap")
	}
	n := *preview
	if n > len(seeds) {
		n = len(seeds)
	}
	if n > 0 {
		fmt.Printf("top %d candidates:\n", n)
		for _, s := range seeds[:n] {
			marker := " "
			if s.Bypass {
				marker = "!"
			}
			fmt.Printf("  %s %-24s score=%5.1f action=%-5s kind=%s edits=%d\n",
				marker, s.Identifier, s.Assessment.Score, s.Assessment.Action, s.Kind, s.Edits)
		}
	}
	return 0
}

// ============================================================================
// calibrate
// ============================================================================

func runCalibrate(args []string) int {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	targetRecall := fs.Float64("target-recall", calibrate.DefaultTargetRecall, "minimum recall at the warn threshold")
	costBlockBenign := fs.Float64("cost-block-benign", 1.0, "cost of blocking a benign identifier")
	costWarnBenign := fs.Float64("cost-warn-benign", 0.25, "cost of warning on a benign identifier")
	costAllowMalicious := fs.Float64("cost-allow-malicious", 5.0, "cost of allowing a malicious identifier")
	costWarnMalicious := fs.Float64("cost-warn-malicious", 1.0, "cost of only warning on a malicious identifier")
	maliciousPrior := fs.Float64("malicious-prior", 0, "reweight dataset to this malicious base rate (0 = off)")
	protect := fs.String("protect", "", "fallback protected targets for rows without their own")
	asJSON := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: nsguard calibrate <dataset.json> [flags]")
		return 2
	}

	rows, err := loadDataset(fs.Arg(0))
	if err != nil {
		return fail("load dataset", err)
	}

	policy, err := calibrate.Calibrate(rows, calibrate.Options{
		Costs: calibrate.CostModel{
			BlockBenign:    *costBlockBenign,
			WarnBenign:     *costWarnBenign,
			AllowMalicious: *costAllowMalicious,
			WarnMalicious:  *costWarnMalicious,
		},
		TargetRecall:   *targetRecall,
		MaliciousPrior: *maliciousPrior,
		Risk:           risk.Options{Protect: splitList(*protect), IncludeReserved: true},
	})
	if err != nil {
		return fail("calibrate", err)
	}

	if *asJSON {
		printJSON(policy)
		return 0
	}
	printPolicy(policy)
	return 0
}

func printPolicy(p calibrate.Policy) {
	fmt.Printf("warn threshold:   %d\n", p.WarnThreshold)
	fmt.Printf("block threshold:  %d\n", p.BlockThreshold)
	fmt.Printf("total cost:       %.3f (%.4f per row)\n", p.TotalCost, p.AverageCost)
	fmt.Printf("recall:           %.3f (constraint met: %v)\n", p.Recall, p.RecallConstraintMet)
	fmt.Printf("confusion:        blockBenign=%.1f warnBenign=%.1f allowMalicious=%.1f warnMalicious=%.1f blockMalicious=%.1f\n",
		p.BlockedBenign, p.WarnedBenign, p.AllowedMalicious, p.WarnedMalicious, p.BlockedMalicious)
}

func loadDataset(path string) ([]calibrate.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return calibrate.ParseDataset(data)
}

// ============================================================================
// drift
// ============================================================================

func runDrift(args []string) int {
	fs := flag.NewFlagSet("drift", flag.ExitOnError)
	limit := fs.Int("limit", drift.DefaultLimit, "per-row comparisons included in the report")
	asJSON := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	var rows []drift.Row
	if fs.NArg() > 0 {
		data, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			return fail("load corpus", err)
		}
		rows, err = drift.ParseRows(data)
		if err != nil {
			return fail("parse corpus", err)
		}
	} else {
		rows = drift.BaselineRows()
	}

	// On the CLI --limit 0 means no row detail at all.
	lim := *limit
	if lim == 0 {
		lim = -1
	}
	rep, err := drift.Analyze(rows, drift.Options{Limit: lim})
	if err != nil {
		return fail("drift analysis", err)
	}

	if *asJSON {
		printJSON(rep)
		return 0
	}
	printDrift(rep)
	return 0
}

func printDrift(rep drift.Report) {
	fmt.Printf("rows:              %d\n", rep.Total)
	fmt.Printf("action flips:      %d\n", rep.ActionFlips)
	fmt.Printf("filtered stricter: %d\n", rep.FilteredStricter)
	fmt.Printf("full stricter:     %d\n", rep.FullStricter)
	fmt.Printf("|delta|:           mean=%.2f max=%.2f\n", rep.MeanAbsDelta, rep.MaxAbsDelta)
	for _, c := range rep.Rows {
		marker := " "
		if c.Flip {
			marker = "!"
		}
		fmt.Printf("  %s %-24s filtered=%5.1f/%-5s full=%5.1f/%-5s\n",
			marker, c.Identifier, c.ScoreFiltered, c.ActionFiltered, c.ScoreFull, c.ActionFull)
	}
}

// ============================================================================
// recommend
// ============================================================================

// Recommendation composes a calibration run with drift analysis into one
// deployable configuration plus the CI gate budgets derived from the
// baseline corpus.
type Recommendation struct {
	Policy        calibrate.Policy `json:"policy"`
	DatasetDrift  drift.Report     `json:"datasetDrift"`
	BaselineDrift drift.Report     `json:"baselineDrift"`
	Gate          DriftGate        `json:"gate"`
}

// DriftGate is the CI budget: fail the pipeline when a drift run exceeds
// either bound.
type DriftGate struct {
	MaxActionFlips int    `json:"maxActionFlips"`
	MaxAbsDelta    int    `json:"maxAbsDelta"`
	Command        string `json:"command"`
}

func runRecommend(args []string) int {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: nsguard recommend <dataset.json> [flags]")
		return 2
	}

	rows, err := loadDataset(fs.Arg(0))
	if err != nil {
		return fail("load dataset", err)
	}

	policy, err := calibrate.Calibrate(rows, calibrate.Options{Risk: risk.Options{IncludeReserved: true}})
	if err != nil {
		return fail("calibrate", err)
	}

	ropts := risk.Options{
		IncludeReserved: true,
		WarnThreshold:   risk.Threshold(float64(policy.WarnThreshold)),
		BlockThreshold:  risk.Threshold(float64(policy.BlockThreshold)),
	}
	datasetDrift, err := drift.Analyze(driftRows(rows), drift.Options{Risk: ropts, Limit: -1})
	if err != nil {
		return fail("dataset drift", err)
	}
	baselineDrift, err := drift.Analyze(drift.BaselineRows(), drift.Options{Risk: ropts, Limit: -1})
	if err != nil {
		return fail("baseline drift", err)
	}

	rec := Recommendation{
		Policy:        policy,
		DatasetDrift:  datasetDrift,
		BaselineDrift: baselineDrift,
		Gate: DriftGate{
			MaxActionFlips: baselineDrift.ActionFlips,
			MaxAbsDelta:    int(math.Ceil(baselineDrift.MaxAbsDelta/5) * 5),
			Command:        "nsguard drift --limit 0 --json",
		},
	}

	if *asJSON {
		printJSON(rec)
		return 0
	}
	printPolicy(policy)
	fmt.Println()
	fmt.Printf("dataset drift:    flips=%d mean|delta|=%.2f\n", datasetDrift.ActionFlips, datasetDrift.MeanAbsDelta)
	fmt.Printf("baseline drift:   flips=%d max|delta|=%.2f\n", baselineDrift.ActionFlips, baselineDrift.MaxAbsDelta)
	fmt.Printf("CI gate:          flips<=%d |delta|<=%d via `%s`\n",
		rec.Gate.MaxActionFlips, rec.Gate.MaxAbsDelta, rec.Gate.Command)
	return 0
}

// driftRows projects calibration rows onto the drift corpus shape.
func driftRows(rows []calibrate.Row) []drift.Row {
	out := make([]drift.Row, len(rows))
	for i, r := range rows {
		out[i] = drift.Row{Identifier: r.Identifier, Protect: r.Protect}
	}
	return out
}
