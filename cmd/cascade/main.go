// Command cascade runs multi-step tasks against configured providers.
//
// Usage:
//
//	cascade run --config cascade.yaml --goal "summarize the corpus"
//	cascade validate --config cascade.yaml
//	cascade version
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/cascadehq/cascade/pkg/cache"
	"github.com/cascadehq/cascade/pkg/config"
	configprovider "github.com/cascadehq/cascade/pkg/config/provider"
	"github.com/cascadehq/cascade/pkg/logger"
	"github.com/cascadehq/cascade/pkg/metrics"
	"github.com/cascadehq/cascade/pkg/orchestrator"
	"github.com/cascadehq/cascade/pkg/provider"
	"github.com/cascadehq/cascade/pkg/ratelimit"
	"github.com/cascadehq/cascade/pkg/retry"
	"github.com/cascadehq/cascade/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration."`
	Run      RunCmd      `cmd:"" help:"Run a task through the configured pipeline."`

	Config       string   `short:"c" help:"Path to config file or remote key." type:"path"`
	ConfigSource string   `help:"Config source (file, consul, etcd, zookeeper)." default:"file"`
	Endpoints    []string `help:"Endpoints for remote config sources."`
	LogLevel     string   `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat    string   `help:"Log format (text, json)." default:"text"`
	LogFile      string   `help:"Log file path (empty = stderr)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("cascade version %s\n", version)
	return nil
}

// ValidateCmd loads and validates the configuration.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	defer loader.Close()

	fmt.Printf("Configuration OK: %d provider(s), orchestration mode %q\n",
		len(cfg.Providers), cfg.Orchestrator.Mode)
	return nil
}

// RunCmd executes a task.
type RunCmd struct {
	Goal  string `help:"Task goal." required:""`
	Input string `help:"Task input as a JSON object." placeholder:"JSON"`
	Watch bool   `help:"Watch the config source for changes."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	defer loader.Close()

	if c.Watch {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	var input map[string]any
	if c.Input != "" {
		if err := json.Unmarshal([]byte(c.Input), &input); err != nil {
			return fmt.Errorf("invalid --input: %w", err)
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	limiter, err := ratelimit.NewFromConfig(&cfg.RateLimit)
	if err != nil {
		return err
	}

	cacheMgr, err := cache.NewFromConfig(&cfg.Cache, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheMgr.Close(); err != nil {
			slog.Warn("Cache close failed", "error", err)
		}
	}()

	if m != nil {
		ops := server.New(cfg.Metrics.Addr, m, server.WithCache(cacheMgr))
		go func() {
			if err := ops.Start(); err != nil {
				slog.Error("Ops server error", "error", err)
			}
		}()
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = ops.Shutdown(shutCtx)
		}()
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	base := orchestrator.NewBase(orchestrator.Options{
		Registry:         registry,
		Limiter:          limiter,
		Cache:            cacheMgr,
		Retry:            retry.FromConfig(&cfg.Retry),
		Metrics:          m,
		SubtaskTimeout:   cfg.Orchestrator.SubtaskTimeout,
		FailureThreshold: cfg.Orchestrator.Threshold(),
	})

	orch, err := orchestrator.NewFromConfig(&cfg.Orchestrator, base, pipelineDecomposer(cfg))
	if err != nil {
		return err
	}

	task := orchestrator.NewTask(c.Goal, input)
	slog.Info("Task started", "task", task.ID, "goal", task.Goal, "mode", cfg.Orchestrator.Mode)

	final, err := orch.Execute(ctx, task)
	if err != nil {
		return fmt.Errorf("task %s: %w", task.ID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(final)
}

// loadConfig resolves the config source, loads the layered config, and
// initializes logging from the merged result.
func loadConfig(ctx context.Context, cli *CLI) (*config.Config, *config.Loader, error) {
	sourceType, err := configprovider.ParseType(cli.ConfigSource)
	if err != nil {
		return nil, nil, err
	}

	cfg, loader, err := config.Load(ctx, configprovider.Options{
		Type:      sourceType,
		Path:      cli.Config,
		Endpoints: cli.Endpoints,
	})
	if err != nil {
		return nil, nil, err
	}

	// CLI flags win over file settings for logging.
	logging := cfg.Logging
	if cli.LogLevel != "" {
		logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		logging.Format = cli.LogFormat
	}
	if cli.LogFile != "" {
		logging.File = cli.LogFile
	}

	level, err := logger.ParseLevel(logging.Level)
	if err != nil {
		loader.Close()
		return nil, nil, err
	}
	format, err := logger.ParseFormat(logging.Format)
	if err != nil {
		loader.Close()
		return nil, nil, err
	}
	if _, err := logger.Init(logger.Options{Level: level, Format: format, File: logging.File}); err != nil {
		loader.Close()
		return nil, nil, err
	}

	return cfg, loader, nil
}

// buildRegistry creates provider clients for every configured provider.
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for name := range cfg.Providers {
		pc := cfg.Providers[name]
		caller, err := provider.NewHTTPCallerFromConfig(name, &pc)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		if err := registry.Register(name, caller); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// pipelineDecomposer plans tasks from the statically configured
// pipeline subtasks. The task's input is merged into each payload
// under the "input" key.
func pipelineDecomposer(cfg *config.Config) orchestrator.Decomposer {
	return orchestrator.DecomposerFunc(func(task *orchestrator.Task) ([]orchestrator.Subtask, error) {
		if len(cfg.Pipeline.Subtasks) == 0 {
			return nil, fmt.Errorf("pipeline has no subtasks configured")
		}

		subtasks := make([]orchestrator.Subtask, 0, len(cfg.Pipeline.Subtasks))
		for i, payload := range cfg.Pipeline.Subtasks {
			name, _ := payload["name"].(string)
			if name == "" {
				name = fmt.Sprintf("subtask-%d", i+1)
			}

			merged := make(map[string]any, len(payload)+2)
			for k, v := range payload {
				merged[k] = v
			}
			merged["goal"] = task.Goal
			if task.Input != nil {
				merged["input"] = task.Input
			}

			subtasks = append(subtasks, orchestrator.NewSubtask(name, &provider.Request{
				Provider: cfg.Pipeline.Provider,
				Model:    cfg.Pipeline.Model,
				Payload:  merged,
			}))
		}
		return subtasks, nil
	})
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("cascade"),
		kong.Description("cascade - resilient multi-step task orchestration"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
