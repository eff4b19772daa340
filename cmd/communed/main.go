package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"commune/cmd/internal/passphrase"
	"commune/config"
	"commune/core"
	"commune/core/events"
	"commune/core/types"
	"commune/crypto"
	"commune/observability/logging"
	"commune/rpc"
	"commune/storage"

	"golang.org/x/time/rate"
)

const (
	operatorPassEnv = "COMMUNE_OPERATOR_PASS"
	genesisPathEnv  = "COMMUNE_GENESIS"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides COMMUNE_GENESIS and config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("COMMUNE_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup(logging.Options{
		Service: "communed",
		Env:     env,
		File:    cfg.LogFile,
		MaxSize: cfg.LogMaxSizeMB,
		MaxAge:  cfg.LogMaxAgeDays,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	passSource := passphrase.NewSource(operatorPassEnv)
	operatorKey, err := loadOperatorKey(cfg, passSource.Get)
	if err != nil {
		logger.Error("Failed to load operator key", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("operator identity loaded", "address", operatorKey.PubKey().Address())

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)

	var spec *core.GenesisSpec
	if genesisPath != "" {
		spec, err = core.LoadGenesis(genesisPath)
		if err != nil {
			logger.Error("Failed to load genesis spec", slog.Any("error", err))
			os.Exit(1)
		}
	}

	nodeCfg, err := resolveNodeConfig(cfg, spec, operatorKey)
	if err != nil {
		logger.Error("Failed to resolve node identities", slog.Any("error", err))
		os.Exit(1)
	}

	node, err := core.NewNode(db, nodeCfg)
	if err != nil {
		logger.Error("Failed to build node", slog.Any("error", err))
		os.Exit(1)
	}
	node.SetEmitter(&logEmitter{log: logger})

	if spec != nil {
		if err := node.ApplyGenesis(spec); err != nil {
			logger.Error("Failed to apply genesis", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("genesis applied", "path", genesisPath, "allocations", len(spec.Alloc))
	}

	server := rpc.NewServer(node, logger, rpc.Options{
		RateLimit:         rate.Limit(cfg.RPCRateLimit),
		RateBurst:         cfg.RPCRateBurst,
		MaxRequestBytes:   int64(cfg.RequestBodyLimitKB) << 10,
		MetricsEnabled:    cfg.MetricsEnabled,
		ReadOnlyUnlimited: cfg.ReadOnlyUnlimited,
	})
	logger.Info("node ready", "program", nodeCfg.Program, "network", cfg.NetworkName)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func loadOperatorKey(cfg *config.Config, pass func() (string, error)) (*crypto.PrivateKey, error) {
	key, err := crypto.LoadFromKeystore(cfg.OperatorKeystore, "")
	if err == nil {
		return key, nil
	}
	secret, perr := pass()
	if perr != nil {
		return nil, perr
	}
	return crypto.LoadFromKeystore(cfg.OperatorKeystore, secret)
}

// resolveGenesisPath prefers the CLI flag, then the environment, then the
// config file.
func resolveGenesisPath(flagValue, configValue string, lookup func(string) (string, bool)) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v, ok := lookup(genesisPathEnv); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(configValue)
}

// resolveNodeConfig settles the program and reward pool addresses, in order:
// genesis spec, config file, operator key.
func resolveNodeConfig(cfg *config.Config, spec *core.GenesisSpec, operator *crypto.PrivateKey) (core.Config, error) {
	if spec != nil {
		return spec.Config()
	}
	out := core.Config{}
	if strings.TrimSpace(cfg.ProgramAddress) != "" {
		program, err := crypto.DecodeAddress(cfg.ProgramAddress)
		if err != nil {
			return core.Config{}, err
		}
		out.Program = program
	} else {
		out.Program = operator.PubKey().Address()
	}
	if strings.TrimSpace(cfg.RewardPoolAddress) != "" {
		pool, err := crypto.DecodeAddress(cfg.RewardPoolAddress)
		if err != nil {
			return core.Config{}, err
		}
		out.RewardPool = pool
	}
	return out, nil
}

// logEmitter mirrors every engine event onto the structured log.
type logEmitter struct {
	log *slog.Logger
}

func (l *logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	args := []any{"event", evt.EventType()}
	type carrier interface{ Event() *types.Event }
	if c, ok := evt.(carrier); ok && c.Event() != nil {
		for k, v := range c.Event().Attributes {
			args = append(args, k, v)
		}
	}
	l.log.Info("state transition", args...)
}
