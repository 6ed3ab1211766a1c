package cli

import (
	"log/slog"

	"github.com/roach88/askfit/internal/audit"
	"github.com/roach88/askfit/internal/config"
	"github.com/roach88/askfit/internal/execute"
	"github.com/roach88/askfit/internal/generate"
	"github.com/roach88/askfit/internal/grammar"
	"github.com/roach88/askfit/internal/pipeline"
	"github.com/roach88/askfit/internal/schema"
)

// deps bundles the wired service components for the online commands.
type deps struct {
	config   *config.Config
	spec     *grammar.Spec
	store    *execute.Store
	auditLog *audit.Log
	pipeline *pipeline.Pipeline
}

// close releases held resources.
func (d *deps) close() {
	if d.auditLog != nil {
		d.auditLog.Close()
	}
	if d.store != nil {
		d.store.Close()
	}
}

// buildDeps loads config from the environment and wires the full
// pipeline: schema, grammar, generator, store, and audit log.
func buildDeps(logger *slog.Logger) (*deps, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "incomplete configuration", err)
	}

	sch, err := schema.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load table schema", err)
	}
	spec, err := grammar.New(sch)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "build grammar", err)
	}

	store, err := execute.Open(cfg.ClickHouse, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open clickhouse", err)
	}

	d := &deps{config: cfg, spec: spec, store: store}

	if cfg.AuditPath != "" {
		log, err := audit.Open(cfg.AuditPath, logger)
		if err != nil {
			d.close()
			return nil, WrapExitError(ExitCommandError, "open audit log", err)
		}
		d.auditLog = log
	}

	gen := generate.NewOpenAI(cfg.OpenAI, spec, sch, logger)

	var sink pipeline.AuditSink
	if d.auditLog != nil {
		sink = d.auditLog
	}
	d.pipeline = pipeline.New(spec, gen, store, nil, sink, logger)

	return d, nil
}
