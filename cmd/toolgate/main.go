// Command toolgate runs the MCP tool gateway for a headless content platform.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"toolgate/internal/adapter/cms"
	"toolgate/internal/adapter/counterstore"
	"toolgate/internal/adapter/gateway"
	"toolgate/internal/adapter/legacy"
	"toolgate/internal/adapter/mcpserver"
	"toolgate/internal/adapter/packstore"
	"toolgate/internal/domain"
	"toolgate/internal/infra/config"
	"toolgate/internal/infra/logger"
	"toolgate/internal/infra/tracer"
	"toolgate/internal/router"
	"toolgate/internal/security"
	"toolgate/internal/tools"
	"toolgate/internal/usecase/eventbus"
)

const version = "1.0.0"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "version":
			fmt.Println("toolgate " + version)
			return
		case "encrypt-secret":
			if err := runEncryptSecret(); err != nil {
				fmt.Fprintf(os.Stderr, "encrypt-secret: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`toolgate - MCP tool gateway for a headless content platform

USAGE:
    toolgate [COMMAND] [FLAGS]

COMMANDS:
    encrypt-secret   Encrypt a secret value for use in config.yaml
    version          Print the version

    (no command) - Run the gateway with existing config

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml
    Environment: TOOLGATE_* variables override config
    Secrets:     values prefixed with "enc:" are decrypted with
                 the TOOLGATE_CONFIG_KEY passphrase`)
}

func configPath() string {
	for i := 1; i < len(os.Args); i++ {
		switch {
		case os.Args[i] == "--config" && i+1 < len(os.Args):
			return os.Args[i+1]
		case strings.HasPrefix(os.Args[i], "--config="):
			return strings.TrimPrefix(os.Args[i], "--config=")
		}
	}
	return "config.yaml"
}

// runEncryptSecret reads a secret on stdin and prints the enc: config value.
func runEncryptSecret() error {
	passphrase := os.Getenv("TOOLGATE_CONFIG_KEY")
	if passphrase == "" {
		return fmt.Errorf("TOOLGATE_CONFIG_KEY must be set")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	plaintext := strings.TrimRight(string(data), "\r\n")
	if plaintext == "" {
		return fmt.Errorf("empty secret")
	}

	encrypted, err := config.EncryptValue(plaintext, passphrase)
	if err != nil {
		return err
	}
	fmt.Println("enc:" + encrypted)
	return nil
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. Event bus
	bus := eventbus.New(log)
	defer bus.Close()

	// 4. Audit sink
	audit, err := security.NewFileAuditSink(cfg.Audit.Path, bus, log)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	defer audit.Close()

	retention, err := retentionPolicy(cfg.Audit)
	if err != nil {
		return fmt.Errorf("audit retention: %w", err)
	}
	if retention != nil {
		audit.SetRetention(*retention)
	}

	// 5. Counter store
	counters, countersCloser, err := buildCounterStore(cfg.Counter)
	if err != nil {
		return fmt.Errorf("counters: %w", err)
	}
	if countersCloser != nil {
		defer countersCloser()
	}

	// 6. Pack store
	packs, packsCloser, err := buildPackStore(cfg.Packs)
	if err != nil {
		return fmt.Errorf("packs: %w", err)
	}
	if packsCloser != nil {
		defer packsCloser()
	}

	// 7. Content platform client
	cmsClient, err := cms.New(cfg.CMS, log)
	if err != nil {
		return fmt.Errorf("cms: %w", err)
	}

	// 8. Router
	// list_tools introspects the registry it lives in, so it gets a
	// late-bound reference.
	lister := &registryRef{}
	registry := router.NewRegistry([]domain.ToolHandler{
		tools.NewHealthTool(cmsClient, version),
		tools.NewCreatePostTool(cmsClient),
		tools.NewUpdatePostTool(cmsClient),
		tools.NewGetPostTool(cmsClient),
		tools.NewListPostsTool(cmsClient),
		tools.NewListToolsTool(lister, packs),
	}, log)
	lister.registry = registry

	limiter := router.NewLimiter(counters, cmsClient, cfg.Rate.Base, cfg.Rate.Window, log)

	var legacyTier domain.LegacyTranslator
	if cfg.Legacy.Enabled {
		legacyTier = legacy.New(cmsClient, log)
	}

	rt := router.New(router.Deps{
		Registry: registry,
		Limiter:  limiter,
		Packs:    packs,
		Callers:  cmsClient,
		Legacy:   legacyTier,
		Audit:    audit,
		Logger:   log,
	})

	// 9. Retention scheduler
	scheduler := cron.New()
	if retention != nil && cfg.Audit.RetentionSchedule != "" {
		_, err := scheduler.AddFunc(cfg.Audit.RetentionSchedule, func() {
			removed, err := audit.EnforceRetention(context.Background())
			if err != nil {
				log.Error("audit retention failed", "error", err)
				return
			}
			if removed > 0 {
				log.Info("audit retention enforced", "removed", removed)
			}
		})
		if err != nil {
			return fmt.Errorf("retention schedule: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// 10. Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup

	// 11. WebSocket gateway
	if cfg.Gateway.Enabled {
		auth := gateway.NewStaticTokenAuth(cfg.Gateway.Tokens)
		srv := gateway.NewServer(bus, auth, gateway.ServerOptions{
			Addr:           cfg.Gateway.Addr,
			RequestsPerMin: cfg.Gateway.RequestsPerMin,
			Burst:          cfg.Gateway.Burst,
			TrustedProxies: cfg.Gateway.TrustedProxies,
		}, log)
		gateway.RegisterRPCHandlers(srv, gateway.HandlerDeps{
			Router: rt,
			Packs:  packs,
			Logger: log,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				log.Error("gateway server error", "error", err)
				cancel()
			}
		}()
	}

	// 12. MCP stdio server
	if cfg.MCP.Enabled {
		mcpSrv := mcpserver.New(rt, packs, version, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mcpSrv.ServeStdio(); err != nil {
				log.Error("mcp server error", "error", err)
			}
			cancel()
		}()
	}

	log.Info("toolgate started",
		"version", version,
		"counters", cfg.Counter.Backend,
		"packs", cfg.Packs.Backend,
		"legacy", cfg.Legacy.Enabled,
		"gateway", cfg.Gateway.Enabled,
		"mcp", cfg.MCP.Enabled,
	)

	<-ctx.Done()
	log.Info("toolgate shutting down")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("shutdown timed out")
	}
	return nil
}

// registryRef defers the registry reference so list_tools can be part of the
// core set it reports on.
type registryRef struct {
	registry *router.Registry
}

func (r *registryRef) List(ctx context.Context, packs domain.PackStore) []domain.ToolInfo {
	if r.registry == nil {
		return nil
	}
	return r.registry.List(ctx, packs)
}

func retentionPolicy(cfg config.AuditConfig) (*security.RetentionPolicy, error) {
	if cfg.RetentionMaxAge == "" && cfg.RetentionMaxSize == "" {
		return nil, nil
	}
	policy := &security.RetentionPolicy{}
	if cfg.RetentionMaxAge != "" {
		age, err := time.ParseDuration(cfg.RetentionMaxAge)
		if err != nil {
			return nil, err
		}
		policy.MaxAge = age
	}
	if cfg.RetentionMaxSize != "" {
		size, err := security.ParseRetentionMaxSize(cfg.RetentionMaxSize)
		if err != nil {
			return nil, err
		}
		policy.MaxSize = size
	}
	return policy, nil
}

func buildCounterStore(cfg config.CounterConfig) (domain.CounterStore, func() error, error) {
	switch cfg.Backend {
	case "memory", "":
		return counterstore.NewMemory(), nil, nil
	case "sqlite":
		s, err := counterstore.NewSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		r, err := counterstore.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown counter backend %q", cfg.Backend)
	}
}

func buildPackStore(cfg config.PacksConfig) (domain.PackStore, func() error, error) {
	switch cfg.Backend {
	case "static", "":
		return packstore.NewStatic(cfg.Static), nil, nil
	case "sqlite":
		s, err := packstore.NewSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown pack backend %q", cfg.Backend)
	}
}
