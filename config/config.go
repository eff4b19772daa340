package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"commune/crypto"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress         string `toml:"RPCAddress"`
	DataDir            string `toml:"DataDir"`
	GenesisFile        string `toml:"GenesisFile"`
	ProgramAddress     string `toml:"ProgramAddress"`
	RewardPoolAddress  string `toml:"RewardPoolAddress"`
	OperatorKeystore   string `toml:"OperatorKeystore"`
	NetworkName        string `toml:"NetworkName"`
	LogFile            string `toml:"LogFile"`
	LogMaxSizeMB       int    `toml:"LogMaxSizeMB"`
	LogMaxAgeDays      int    `toml:"LogMaxAgeDays"`
	RPCRateLimit       int    `toml:"RPCRateLimit"`
	RPCRateBurst       int    `toml:"RPCRateBurst"`
	MetricsEnabled     bool   `toml:"MetricsEnabled"`
	ReadOnlyUnlimited  bool   `toml:"ReadOnlyUnlimited"`
	RequestBodyLimitKB int    `toml:"RequestBodyLimitKB"`
}

// Load loads the configuration from the given path, creating a default
// file (and operator keystore) when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ProgramAddress) != "" {
		if _, err := crypto.DecodeAddress(cfg.ProgramAddress); err != nil {
			return nil, fmt.Errorf("config: ProgramAddress: %w", err)
		}
	}
	if strings.TrimSpace(cfg.RewardPoolAddress) != "" {
		if _, err := crypto.DecodeAddress(cfg.RewardPoolAddress); err != nil {
			return nil, fmt.Errorf("config: RewardPoolAddress: %w", err)
		}
	}
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "commune-local"
	}
	if cfg.RPCRateLimit <= 0 {
		cfg.RPCRateLimit = 50
	}
	if cfg.RPCRateBurst <= 0 {
		cfg.RPCRateBurst = 100
	}
	if cfg.RequestBodyLimitKB <= 0 {
		cfg.RequestBodyLimitKB = 256
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = 100
	}
	if cfg.LogMaxAgeDays <= 0 {
		cfg.LogMaxAgeDays = 28
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.OperatorKeystore
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.OperatorKeystore != keystorePath {
		cfg.OperatorKeystore = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:     ":8545",
		DataDir:        "./commune-data",
		GenesisFile:    "",
		ProgramAddress: key.PubKey().Address().String(),
		NetworkName:    "commune-local",
		MetricsEnabled: true,
	}
	cfg.OperatorKeystore = keystorePath
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
