// Package main is the entry point for the QueryBox MCP server.
//
// The QueryBox server implements a Model Context Protocol (MCP) server that
// answers natural-language questions about a tabular dataset. Each question
// is turned into a short analysis script by a local language model, checked
// against an allowlist policy, executed in a sandbox under resource limits,
// and classified into a display-safe answer. The server supports both stdio
// and HTTP transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/querybox/config"
	"github.com/isdmx/querybox/dataset"
	"github.com/isdmx/querybox/generator"
	"github.com/isdmx/querybox/history"
	"github.com/isdmx/querybox/logger"
	"github.com/isdmx/querybox/mcpserver"
	"github.com/isdmx/querybox/pipeline"
	"github.com/isdmx/querybox/policy"
	"github.com/isdmx/querybox/sandbox"
	"github.com/isdmx/querybox/validator"
)

func newPolicy(cfg *config.Config) (*policy.Policy, error) {
	pol, err := policy.Load(cfg.Policy.RulesFile)
	if err != nil {
		return nil, err
	}
	return pol.WithLimits(cfg.Security.MaxInputLength, cfg.Sandbox.TimeoutSec, cfg.Sandbox.MemoryMB), nil
}

func newDatasetManager(cfg *config.Config, log *zap.Logger) (*dataset.Manager, error) {
	m := dataset.NewManager(cfg.Data.Path, log)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

func newExecutor(cfg *config.Config, pol *policy.Policy, log *zap.Logger) (sandbox.Executor, error) {
	limits := sandbox.Limits{
		TimeoutSec:  pol.TimeoutSec(),
		MaxMemoryMB: pol.MaxMemoryMB(),
	}
	return sandbox.NewExecutor(log, limits, cfg.Sandbox.Backend, cfg.Sandbox.WorkerPath)
}

func newGenerator(cfg *config.Config, log *zap.Logger) *generator.OllamaGenerator {
	return generator.NewOllamaGenerator(
		cfg.Generator.BaseURL,
		cfg.Generator.Model,
		cfg.GetGeneratorTimeout(),
		log,
	)
}

func newHistoryStore(cfg *config.Config, log *zap.Logger) (*history.Store, error) {
	return history.New(cfg.History.Path, cfg.History.MaxEntries, log)
}

func newPipeline(
	cfg *config.Config,
	pol *policy.Policy,
	data *dataset.Manager,
	exec sandbox.Executor,
	gen *generator.OllamaGenerator,
	store *history.Store,
	log *zap.Logger,
) *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		Policy:    pol,
		Validator: validator.New(pol, log),
		Executor:  exec,
		Data:      data,
		CodeGen:   gen,
		RespGen:   gen,
		Store:     store,
		Logger:    log,
	})
}

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			config.New,
			logger.NewFromConfig,
			newPolicy,
			newDatasetManager,
			newExecutor,
			newGenerator,
			newHistoryStore,
			newPipeline,
			mcpserver.New,
		),

		// Check the model service, watch the dataset file for changes and
		// close the history store on shutdown
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config, data *dataset.Manager, store *history.Store, gen *generator.OllamaGenerator, log *zap.Logger) {
				watchCtx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						// The server still starts when the model is down;
						// queries fail individually until it comes back.
						if err := gen.Healthy(ctx); err != nil {
							log.Warn("code generator unreachable at startup",
								zap.String("base_url", cfg.Generator.BaseURL),
								zap.Error(err))
						} else {
							log.Info("code generator reachable",
								zap.String("model", cfg.Generator.Model))
						}
						if cfg.Data.Watch {
							// Watch blocks until cancelled
							go func() {
								if err := data.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
									panic(err)
								}
							}()
						}
						return nil
					},
					OnStop: func(ctx context.Context) error {
						cancel()
						return store.Close()
					},
				})
			},
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(cfg *config.Config, server *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "stdio":
					// Use fx to run this as a background task
					go func() {
						if err := server.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := server.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
