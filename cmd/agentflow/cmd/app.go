package cmd

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/meowstack/agentflow/internal/clock"
	"github.com/meowstack/agentflow/internal/config"
	"github.com/meowstack/agentflow/internal/engine"
	"github.com/meowstack/agentflow/internal/eventbus"
	"github.com/meowstack/agentflow/internal/logging"
	"github.com/meowstack/agentflow/internal/mandate"
	"github.com/meowstack/agentflow/internal/orchestrator"
	"github.com/meowstack/agentflow/internal/registry"
	"github.com/meowstack/agentflow/internal/signer"
	"github.com/meowstack/agentflow/internal/store"
	"github.com/meowstack/agentflow/internal/tools"
)

// app bundles every collaborator a command needs, built once from the
// project's config. It mirrors the Orchestrator's explicit-collaborator
// constructor: nothing here is process-global state.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    store.Store
	bus      eventbus.EventBus
	clock    clock.Clock
	registry *registry.Registry
	mandates *mandate.Manager
	signer   *signer.Ed25519Signer
	orch     *orchestrator.Orchestrator
}

// newApp loads config from workdir, wires the in-memory or Redis store per
// config, and assembles every core component. The signer's private key is
// persisted under workdir so mandates created by one invocation (e.g.
// `run`) can be verified by a later one (`mandates verify`). traceDir, if
// non-empty, enables a FileTracer writing trace.jsonl under that directory.
func newApp(traceDir string) (*app, error) {
	cfg, err := config.LoadFromDir(flagWorkdir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagVerbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, _, err := logging.NewFromConfig(cfg, flagWorkdir)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	sgn, err := loadOrCreateSigner(filepath.Join(flagWorkdir, ".agentflow", "state", "signer.key"))
	if err != nil {
		return nil, fmt.Errorf("loading signer: %w", err)
	}

	reg := registry.New()
	if err := tools.RegisterBuiltins(reg, tools.Dependencies{HTTPClient: http.DefaultClient}); err != nil {
		return nil, fmt.Errorf("registering built-in tools: %w", err)
	}

	bus := eventbus.NewInMemory()
	clk := clock.New()
	mgr := mandate.New(st, clk, cfg.Mandate, log)
	// The persisted signer key is stable across invocations, so mandates
	// signed by an earlier `run` can still be verified by a later
	// `mandates verify` even though it's a fresh Manager instance.
	mgr.RegisterVerifier(sgn.KeyID(), sgn)

	var tracer orchestrator.Tracer
	if traceDir != "" {
		ft, err := orchestrator.NewFileTracer(traceDir)
		if err != nil {
			return nil, fmt.Errorf("opening trace file: %w", err)
		}
		tracer = ft
	}

	eng := newEngine(reg)
	orch := orchestrator.New(st, reg, eng, bus, clk, mgr, sgn, nil, tracer, cfg.Orchestrator, log)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		bus:      bus,
		clock:    clk,
		registry: reg,
		mandates: mgr,
		signer:   sgn,
		orch:     orch,
	}, nil
}

func newEngine(reg *registry.Registry) *engine.Engine {
	return engine.New(reg.IsIdempotent)
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		return store.NewRedis(client, "agentflow"), nil
	default:
		return store.NewInMemory(), nil
	}
}

// loadOrCreateSigner reads an Ed25519 private key from path, generating
// and persisting a fresh one on first use.
func loadOrCreateSigner(path string) (*signer.Ed25519Signer, error) {
	if data, err := os.ReadFile(path); err == nil {
		keyID, priv, err := decodeSignerFile(data)
		if err != nil {
			return nil, err
		}
		return signer.NewEd25519SignerFromKey(keyID, priv), nil
	}

	sgn, err := signer.NewEd25519Signer()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(path, encodeSignerFile(sgn), 0o600); err != nil {
		return nil, fmt.Errorf("persisting signer key: %w", err)
	}
	return sgn, nil
}

// encodeSignerFile/decodeSignerFile store "<keyID>\n<hex private key>\n",
// the minimal on-disk form that round-trips NewEd25519SignerFromKey.
func encodeSignerFile(s *signer.Ed25519Signer) []byte {
	return []byte(s.KeyID() + "\n" + hex.EncodeToString(s.PrivateKeyBytes()) + "\n")
}

func decodeSignerFile(data []byte) (string, []byte, error) {
	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	if len(lines) != 2 {
		return "", nil, fmt.Errorf("malformed signer key file")
	}
	priv, err := hex.DecodeString(strings.TrimSpace(lines[1]))
	if err != nil {
		return "", nil, fmt.Errorf("decoding signer key: %w", err)
	}
	return strings.TrimSpace(lines[0]), priv, nil
}
