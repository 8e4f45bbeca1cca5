// Package projectconfig provides the ProjectConfig struct and loader for
// .syndi.yaml project-level configuration files, plus the secrets read
// from the environment.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/reasoning"
	"github.com/spboyer/syndi/internal/settlement"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up from the working
// directory upwards.
const FileName = ".syndi.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultCounterparts = "counterparts.yaml"
	DefaultWallets      = "wallets.json"
	DefaultSessionsDir  = "sessions/"

	DefaultBackend              = "openai"
	DefaultPersuaderModel       = "gpt-4.1"
	DefaultJudgeModel           = "gpt-4o"
	DefaultJudgeWindow          = 20
	DefaultPersuaderMaxTokens   = 300
	DefaultCounterpartMaxTokens = 150

	DefaultWalletServiceURL = "http://localhost:8787"
	DefaultLedgerAPI        = "https://api.testnet.hiro.so"
	DefaultNetwork          = "testnet"
	DefaultTreasury         = "Treasury"
	DefaultMemoLimit        = 34

	DefaultFacilitatorURL = "http://localhost:8788"
	DefaultPaymentNetwork = "stacks:testnet"

	DefaultServerPort = 3000

	DefaultArenaStake      = settlement.DefaultStake
	DefaultMissionaryBonus = settlement.DefaultMissionaryBonus
)

// PathsConfig holds file locations.
type PathsConfig struct {
	Counterparts string `yaml:"counterparts,omitempty"`
	Wallets      string `yaml:"wallets,omitempty"`
	Sessions     string `yaml:"sessions,omitempty"`
}

// ReasoningConfig selects the reasoning backend and its models.
type ReasoningConfig struct {
	Backend              string `yaml:"backend,omitempty"`
	PersuaderModel       string `yaml:"persuader_model,omitempty"`
	JudgeModel           string `yaml:"judge_model,omitempty"`
	JudgeWindow          int    `yaml:"judge_window,omitempty"`
	PersuaderMaxTokens   int    `yaml:"persuader_max_tokens,omitempty"`
	CounterpartMaxTokens int    `yaml:"counterpart_max_tokens,omitempty"`
	MockScore            *int   `yaml:"mock_score,omitempty"`
}

// LedgerConfig holds payment gateway settings.
type LedgerConfig struct {
	DryRun           *bool  `yaml:"dry_run,omitempty"`
	WalletServiceURL string `yaml:"wallet_service_url,omitempty"`
	APIURL           string `yaml:"api_url,omitempty"`
	ExplorerURL      string `yaml:"explorer_url,omitempty"`
	Network          string `yaml:"network,omitempty"`
	Treasury         string `yaml:"treasury,omitempty"`
	MemoLimit        int    `yaml:"memo_limit,omitempty"`
}

// SessionConfig holds session policy.
type SessionConfig struct {
	ProceedOnPaymentFailure *bool                    `yaml:"proceed_on_payment_failure,omitempty"`
	Log                     *bool                    `yaml:"log,omitempty"`
	Prices                  map[models.Caliber]int64 `yaml:"prices,omitempty"`
	Rewards                 settlement.RewardTable   `yaml:"rewards,omitempty"`
}

// ArenaConfig holds arena and missionary amounts.
type ArenaConfig struct {
	Stake           int64 `yaml:"stake,omitempty"`
	MissionaryBonus int64 `yaml:"missionary_bonus,omitempty"`
}

// PaymentsConfig holds payment-required negotiation settings.
type PaymentsConfig struct {
	FacilitatorURL string `yaml:"facilitator_url,omitempty"`
	PayTo          string `yaml:"pay_to,omitempty"`
	Network        string `yaml:"network,omitempty"`
	MaxPerPayment  int64  `yaml:"max_per_payment,omitempty"`
	BudgetLimit    int64  `yaml:"budget_limit,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .syndi.yaml.
type ProjectConfig struct {
	Paths     PathsConfig     `yaml:"paths,omitempty"`
	Reasoning ReasoningConfig `yaml:"reasoning,omitempty"`
	Ledger    LedgerConfig    `yaml:"ledger,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Arena     ArenaConfig     `yaml:"arena,omitempty"`
	Payments  PaymentsConfig  `yaml:"payments,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`

	// dir is where the config file was found; relative paths resolve
	// against it.
	dir string
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Counterparts: DefaultCounterparts,
			Wallets:      DefaultWallets,
			Sessions:     DefaultSessionsDir,
		},
		Reasoning: ReasoningConfig{
			Backend:              DefaultBackend,
			PersuaderModel:       DefaultPersuaderModel,
			JudgeModel:           DefaultJudgeModel,
			JudgeWindow:          DefaultJudgeWindow,
			PersuaderMaxTokens:   DefaultPersuaderMaxTokens,
			CounterpartMaxTokens: DefaultCounterpartMaxTokens,
		},
		Ledger: LedgerConfig{
			DryRun:           boolPtr(false),
			WalletServiceURL: DefaultWalletServiceURL,
			APIURL:           DefaultLedgerAPI,
			Network:          DefaultNetwork,
			Treasury:         DefaultTreasury,
			MemoLimit:        DefaultMemoLimit,
		},
		Session: SessionConfig{
			ProceedOnPaymentFailure: boolPtr(true),
			Log:                     boolPtr(false),
		},
		Arena: ArenaConfig{
			Stake:           DefaultArenaStake,
			MissionaryBonus: DefaultMissionaryBonus,
		},
		Payments: PaymentsConfig{
			FacilitatorURL: DefaultFacilitatorURL,
			Network:        DefaultPaymentNetwork,
		},
		Server: ServerConfig{
			Port:        DefaultServerPort,
			CORSOrigins: []string{"*"},
		},
	}
}

// Load finds .syndi.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, dir, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.dir, _ = filepath.Abs(startDir) //nolint:errcheck
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", FileName, err)
	}
	cfg.dir = dir
	return cfg, nil
}

// validate rejects settings that would let a session run for free.
func (c *ProjectConfig) validate() error {
	var errs []error
	for caliber, price := range c.Session.Prices {
		if !caliber.Valid() {
			errs = append(errs, fmt.Errorf("session.prices: unknown caliber %q", caliber))
			continue
		}
		if price <= 0 {
			errs = append(errs, fmt.Errorf("session.prices.%s must be positive, got %d", caliber, price))
		}
	}
	return errors.Join(errs...)
}

// findConfigFile walks up from dir looking for .syndi.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, dir, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, "", os.ErrNotExist
}

// Resolve turns a configured path into one usable from the working
// directory. Relative paths are relative to the config file.
func (c *ProjectConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	setString(&dst.Paths.Counterparts, src.Paths.Counterparts)
	setString(&dst.Paths.Wallets, src.Paths.Wallets)
	setString(&dst.Paths.Sessions, src.Paths.Sessions)

	// Reasoning
	setString(&dst.Reasoning.Backend, src.Reasoning.Backend)
	setString(&dst.Reasoning.PersuaderModel, src.Reasoning.PersuaderModel)
	setString(&dst.Reasoning.JudgeModel, src.Reasoning.JudgeModel)
	setInt(&dst.Reasoning.JudgeWindow, src.Reasoning.JudgeWindow)
	setInt(&dst.Reasoning.PersuaderMaxTokens, src.Reasoning.PersuaderMaxTokens)
	setInt(&dst.Reasoning.CounterpartMaxTokens, src.Reasoning.CounterpartMaxTokens)
	if src.Reasoning.MockScore != nil {
		dst.Reasoning.MockScore = src.Reasoning.MockScore
	}

	// Ledger
	if src.Ledger.DryRun != nil {
		dst.Ledger.DryRun = src.Ledger.DryRun
	}
	setString(&dst.Ledger.WalletServiceURL, src.Ledger.WalletServiceURL)
	setString(&dst.Ledger.APIURL, src.Ledger.APIURL)
	setString(&dst.Ledger.ExplorerURL, src.Ledger.ExplorerURL)
	setString(&dst.Ledger.Network, src.Ledger.Network)
	setString(&dst.Ledger.Treasury, src.Ledger.Treasury)
	setInt(&dst.Ledger.MemoLimit, src.Ledger.MemoLimit)

	// Session
	if src.Session.ProceedOnPaymentFailure != nil {
		dst.Session.ProceedOnPaymentFailure = src.Session.ProceedOnPaymentFailure
	}
	if src.Session.Log != nil {
		dst.Session.Log = src.Session.Log
	}
	if src.Session.Prices != nil {
		dst.Session.Prices = src.Session.Prices
	}
	if src.Session.Rewards != nil {
		dst.Session.Rewards = src.Session.Rewards
	}

	// Arena
	if src.Arena.Stake != 0 {
		dst.Arena.Stake = src.Arena.Stake
	}
	if src.Arena.MissionaryBonus != 0 {
		dst.Arena.MissionaryBonus = src.Arena.MissionaryBonus
	}

	// Payments
	setString(&dst.Payments.FacilitatorURL, src.Payments.FacilitatorURL)
	setString(&dst.Payments.PayTo, src.Payments.PayTo)
	setString(&dst.Payments.Network, src.Payments.Network)
	if src.Payments.MaxPerPayment != 0 {
		dst.Payments.MaxPerPayment = src.Payments.MaxPerPayment
	}
	if src.Payments.BudgetLimit != 0 {
		dst.Payments.BudgetLimit = src.Payments.BudgetLimit
	}

	// Server
	setInt(&dst.Server.Port, src.Server.Port)
	if len(src.Server.CORSOrigins) > 0 {
		dst.Server.CORSOrigins = src.Server.CORSOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// Environment variable names for secrets and overrides.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvWalletToken   = "WALLET_SERVICE_TOKEN"
	EnvDryRun        = "DRY_RUN"
)

// Secrets are credentials that never live in the config file.
type Secrets struct {
	OpenAIKey     string
	OpenAIBaseURL string
	WalletToken   string
}

// LoadSecrets reads secrets from the environment after loading any .env
// files (missing files are ignored). Variables already set in the process
// environment win over .env values. DRY_RUN overrides ledger.dry_run.
func (c *ProjectConfig) LoadSecrets(envFiles ...string) Secrets {
	var existing []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(envFiles) == 0 {
		_ = godotenv.Load() //nolint:errcheck
	} else if len(existing) > 0 {
		_ = godotenv.Load(existing...) //nolint:errcheck
	}

	if v, ok := os.LookupEnv(EnvDryRun); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Ledger.DryRun = boolPtr(b)
		}
	}

	return Secrets{
		OpenAIKey:     os.Getenv(EnvOpenAIKey),
		OpenAIBaseURL: os.Getenv(EnvOpenAIBaseURL),
		WalletToken:   os.Getenv(EnvWalletToken),
	}
}

// DryRun reports whether transfers should be simulated.
func (c *ProjectConfig) DryRun() bool {
	return c.Ledger.DryRun != nil && *c.Ledger.DryRun
}

// RequiredCredentials lists the credentials a live session needs under
// this configuration, keyed by environment variable.
func (c *ProjectConfig) RequiredCredentials(s Secrets) map[string]string {
	req := map[string]string{}
	if reasoning.RequiresCredential(c.Reasoning.Backend) {
		req[EnvOpenAIKey] = s.OpenAIKey
	}
	if !c.DryRun() {
		req[EnvWalletToken] = s.WalletToken
	}
	return req
}
