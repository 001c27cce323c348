package main

import (
	"flag"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/paultendo/namespace-guard-sub000/pkg/attackgen"
	"github.com/paultendo/namespace-guard-sub000/pkg/config"
	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/drift"
	"github.com/paultendo/namespace-guard-sub000/pkg/httputil"
	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

// maxBatchSize bounds one /v1/risk/batch request. Larger corpora belong in
// the CLI tools, not a synchronous HTTP call.
const maxBatchSize = 500

// server holds the immutable pieces the handlers share. The engine itself
// is pure; nothing here is mutated after startup.
type server struct {
	cfg     *config.Config
	ropts   risk.Options
	limiter *httputil.Limiter
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	listen := fs.String("listen", "", "bind address (overrides config)")
	fs.Parse(args)

	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
	} else {
		cfg = config.NewDefaultConfig()
		err = cfg.Validate()
	}
	if err != nil {
		log.Error().Err(err).Msg("configuration")
		os.Exit(1)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	ropts, err := cfg.RiskOptions()
	if err != nil {
		log.Error().Err(err).Msg("configuration")
		os.Exit(1)
	}

	srv := &server{
		cfg:     cfg,
		ropts:   ropts,
		limiter: httputil.NewLimiter(cfg.MaxConcurrency),
	}
	app := newApp(srv)

	log.Info().
		Str("listen", cfg.ListenAddr).
		Str("variant", cfg.Variant).
		Float64("warn", cfg.WarnThreshold).
		Float64("block", cfg.BlockThreshold).
		Int("concurrency", cfg.MaxConcurrency).
		Msg("nsguard server starting")

	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newApp(srv *server) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "nsguard",
		BodyLimit: srv.cfg.BodyLimitKB * 1024,
	})

	app.Get("/health", srv.handleHealth)
	app.Post("/v1/risk", srv.handleRisk)
	app.Post("/v1/risk/batch", srv.handleRiskBatch)
	app.Post("/v1/attack-gen", srv.handleAttackGen)
	app.Post("/v1/drift", srv.handleDrift)
	return app
}

func (s *server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"load": fiber.Map{
			"in_use":   s.limiter.InUse(),
			"capacity": s.limiter.Capacity(),
			"rejected": s.limiter.Rejected(),
		},
	})
}

// requestOptions merges per-request overrides onto the server defaults.
func (s *server) requestOptions(protect []string, warn, block *float64, variant string) (risk.Options, error) {
	opts := s.ropts
	if len(protect) > 0 {
		opts.Protect = protect
	}
	if warn != nil {
		opts.WarnThreshold = warn
	}
	if block != nil {
		opts.BlockThreshold = block
	}
	if variant != "" {
		v, err := confusables.ParseVariant(variant)
		if err != nil {
			return risk.Options{}, err
		}
		opts.Variant = v
	}
	return opts, nil
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func (s *server) handleRisk(c fiber.Ctx) error {
	var req struct {
		Identifier     string   `json:"identifier"`
		Protect        []string `json:"protect"`
		WarnThreshold  *float64 `json:"warn_threshold"`
		BlockThreshold *float64 `json:"block_threshold"`
		Variant        string   `json:"variant"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Identifier == "" {
		return badRequest(c, "identifier field is required")
	}

	opts, err := s.requestOptions(req.Protect, req.WarnThreshold, req.BlockThreshold, req.Variant)
	if err != nil {
		return badRequest(c, err.Error())
	}

	id := uuid.NewString()
	a := risk.Check(req.Identifier, opts)
	log.Debug().Str("request_id", id).Str("identifier", req.Identifier).
		Float64("score", a.Score).Str("action", string(a.Action)).Msg("risk check")

	return c.JSON(fiber.Map{"request_id": id, "assessment": a})
}

func (s *server) handleRiskBatch(c fiber.Ctx) error {
	var req struct {
		Identifiers []string `json:"identifiers"`
		Protect     []string `json:"protect"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Identifiers) == 0 {
		return badRequest(c, "identifiers field is required")
	}
	if len(req.Identifiers) > maxBatchSize {
		return badRequest(c, "batch too large")
	}

	opts, err := s.requestOptions(req.Protect, nil, nil, "")
	if err != nil {
		return badRequest(c, err.Error())
	}

	// Shed load up front: a batch that cannot get an evaluation slot right
	// now would only queue behind work already in flight.
	if !s.limiter.TryAcquire() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "server busy"})
	}
	s.limiter.Release()

	id := uuid.NewString()
	results := make([]risk.Assessment, len(req.Identifiers))

	g, ctx := errgroup.WithContext(c.Context())
	for i, identifier := range req.Identifiers {
		g.Go(func() error {
			return s.limiter.Do(ctx, func() error {
				results[i] = risk.Check(identifier, opts)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Str("request_id", id).Msg("batch aborted")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "batch aborted"})
	}

	log.Debug().Str("request_id", id).Int("count", len(results)).Msg("risk batch")
	return c.JSON(fiber.Map{"request_id": id, "results": results})
}

func (s *server) handleAttackGen(c fiber.Ctx) error {
	var req struct {
		Target        string `json:"target"`
		Mode          string `json:"mode"`
		MaxEdits      int    `json:"max_edits"`
		MaxCandidates int    `json:"max_candidates"`
		NoIgnorables  bool   `json:"no_ignorables"`
		Variant       string `json:"variant"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Target == "" {
		return badRequest(c, "target field is required")
	}

	mode, err := attackgen.ParseMode(req.Mode)
	if err != nil {
		return badRequest(c, err.Error())
	}
	variant := confusables.Full
	if req.Variant != "" {
		if variant, err = confusables.ParseVariant(req.Variant); err != nil {
			return badRequest(c, err.Error())
		}
	}

	seeds, stats, err := attackgen.Generate(req.Target, attackgen.Options{
		Mode:          mode,
		MaxEdits:      req.MaxEdits,
		MaxCandidates: req.MaxCandidates,
		NoIgnorables:  req.NoIgnorables,
		Variant:       variant,
		Risk:          risk.Options{WarnThreshold: s.ropts.WarnThreshold, BlockThreshold: s.ropts.BlockThreshold},
	})
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(fiber.Map{"request_id": uuid.NewString(), "stats": stats, "seeds": seeds})
}

func (s *server) handleDrift(c fiber.Ctx) error {
	var req struct {
		Rows  []drift.Row `json:"rows"`
		Limit int         `json:"limit"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	rows := req.Rows
	if len(rows) == 0 {
		rows = drift.BaselineRows()
	}
	rep, err := drift.Analyze(rows, drift.Options{Risk: s.ropts, Limit: req.Limit})
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{"request_id": uuid.NewString(), "report": rep})
}
