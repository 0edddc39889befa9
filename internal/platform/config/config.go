package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wrkledger/pkg/domain"
	stringsutil "wrkledger/pkg/platform/strings"
)

// Config gathers everything main needs to wire the service. All values come
// from the environment so deployments stay declarative.
type Config struct {
	Addr string

	// Backing services. Empty values fall back to in-memory stores, which is
	// the development and test default.
	PostgresDSN  string
	RedisURL     string
	KafkaBrokers []string
	JournalTopic string

	JWTSigningKey string
	TokenTTL      time.Duration

	// LedgerID is the service's own identity, bound into every presigned
	// message so a signature for one deployment cannot be replayed on
	// another.
	LedgerID domain.Address

	Admin domain.Address

	Tax  TaxConfig
	Pool PoolConfig
	Sale SaleConfig

	Genesis []Allocation

	// Credentials are the API keys allowed to obtain bearer tokens:
	// "key-id:bcrypt-hash:address" triples.
	Credentials []Credential
}

// TaxConfig parameterizes the fee split applied to public transfers.
// FeeScale is explicit (not a hidden constant): fee = amount*FeeRate/FeeScale.
type TaxConfig struct {
	FeeAccount domain.Address
	FeeRate    uint64
	FeeScale   uint64
}

// PoolConfig names the accounts delegated distribution operates on.
type PoolConfig struct {
	DistributionPool domain.Address
	InAppPurchase    domain.Address
	FeeSink          domain.Address
}

// SaleConfig parameterizes the capped, time-windowed sale.
type SaleConfig struct {
	Cap             uint64
	WeiRaised       uint64
	Rate            uint64
	OpeningTime     time.Time
	ClosingTime     time.Time
	SalesWallet     domain.Address
	PoolWallet      domain.Address
	AvailableInSale uint64
}

// Allocation is a genesis balance minted at first startup.
type Allocation struct {
	Account domain.Address
	Amount  uint64
}

// Credential is an API key allowed to authenticate against the service.
type Credential struct {
	KeyID      string
	SecretHash string
	Address    domain.Address
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:         envOr("WRKLEDGER_ADDR", ":8080"),
		PostgresDSN:  os.Getenv("WRKLEDGER_POSTGRES_DSN"),
		RedisURL:     os.Getenv("WRKLEDGER_REDIS_URL"),
		JournalTopic: envOr("WRKLEDGER_JOURNAL_TOPIC", "wrkledger.journal"),
	}
	if brokers := os.Getenv("WRKLEDGER_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = stringsutil.DedupeAndTrim(strings.Split(brokers, ","))
	}

	cfg.JWTSigningKey = os.Getenv("WRKLEDGER_JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		// Development default - must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	ttl, err := durationOr("WRKLEDGER_TOKEN_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL = ttl

	if cfg.LedgerID, err = addr("WRKLEDGER_LEDGER_ID"); err != nil {
		return Config{}, err
	}
	if cfg.Admin, err = addr("WRKLEDGER_ADMIN"); err != nil {
		return Config{}, err
	}

	if cfg.Tax.FeeAccount, err = addr("WRKLEDGER_TAX_FEE_ACCOUNT"); err != nil {
		return Config{}, err
	}
	if cfg.Tax.FeeRate, err = uintOr("WRKLEDGER_TAX_FEE_RATE", 1); err != nil {
		return Config{}, err
	}
	if cfg.Tax.FeeScale, err = uintOr("WRKLEDGER_TAX_FEE_SCALE", 100); err != nil {
		return Config{}, err
	}
	if cfg.Tax.FeeScale == 0 {
		return Config{}, fmt.Errorf("WRKLEDGER_TAX_FEE_SCALE must be positive")
	}
	if cfg.Tax.FeeRate > cfg.Tax.FeeScale {
		return Config{}, fmt.Errorf("WRKLEDGER_TAX_FEE_RATE must not exceed the scale")
	}

	if cfg.Pool.DistributionPool, err = addr("WRKLEDGER_DISTRIBUTION_POOL"); err != nil {
		return Config{}, err
	}
	if cfg.Pool.InAppPurchase, err = addr("WRKLEDGER_INAPP_POOL"); err != nil {
		return Config{}, err
	}
	if cfg.Pool.FeeSink, err = addr("WRKLEDGER_FEE_SINK"); err != nil {
		return Config{}, err
	}

	if cfg.Sale, err = saleFromEnv(); err != nil {
		return Config{}, err
	}

	if cfg.Genesis, err = allocationsFromEnv(); err != nil {
		return Config{}, err
	}
	if cfg.Credentials, err = credentialsFromEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func saleFromEnv() (SaleConfig, error) {
	var (
		sc  SaleConfig
		err error
	)
	if sc.Cap, err = uintOr("WRKLEDGER_SALE_CAP", 0); err != nil {
		return SaleConfig{}, err
	}
	if sc.WeiRaised, err = uintOr("WRKLEDGER_SALE_RAISED", 0); err != nil {
		return SaleConfig{}, err
	}
	if sc.Rate, err = uintOr("WRKLEDGER_SALE_RATE", 1); err != nil {
		return SaleConfig{}, err
	}
	if sc.OpeningTime, err = timeOr("WRKLEDGER_SALE_OPENING", time.Time{}); err != nil {
		return SaleConfig{}, err
	}
	if sc.ClosingTime, err = timeOr("WRKLEDGER_SALE_CLOSING", time.Time{}); err != nil {
		return SaleConfig{}, err
	}
	if sc.SalesWallet, err = addr("WRKLEDGER_SALE_SALES_WALLET"); err != nil {
		return SaleConfig{}, err
	}
	if sc.PoolWallet, err = addr("WRKLEDGER_SALE_POOL_WALLET"); err != nil {
		return SaleConfig{}, err
	}
	if sc.AvailableInSale, err = uintOr("WRKLEDGER_SALE_AVAILABLE", 0); err != nil {
		return SaleConfig{}, err
	}
	if !sc.OpeningTime.IsZero() && !sc.ClosingTime.After(sc.OpeningTime) {
		return SaleConfig{}, fmt.Errorf("WRKLEDGER_SALE_CLOSING must be after WRKLEDGER_SALE_OPENING")
	}
	return sc, nil
}

func allocationsFromEnv() ([]Allocation, error) {
	raw := os.Getenv("WRKLEDGER_GENESIS")
	if raw == "" {
		return nil, nil
	}
	var allocations []Allocation
	for _, part := range strings.Split(raw, ",") {
		account, amount, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("WRKLEDGER_GENESIS entry %q is not address=amount", part)
		}
		a, err := domain.ParseAddress(account)
		if err != nil {
			return nil, fmt.Errorf("WRKLEDGER_GENESIS: %w", err)
		}
		n, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("WRKLEDGER_GENESIS amount %q: %w", amount, err)
		}
		allocations = append(allocations, Allocation{Account: a, Amount: n})
	}
	return allocations, nil
}

func credentialsFromEnv() ([]Credential, error) {
	raw := os.Getenv("WRKLEDGER_API_CREDENTIALS")
	if raw == "" {
		return nil, nil
	}
	var creds []Credential
	for _, part := range strings.Split(raw, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("WRKLEDGER_API_CREDENTIALS entry is not key-id:hash:address")
		}
		a, err := domain.ParseAddress(fields[2])
		if err != nil {
			return nil, fmt.Errorf("WRKLEDGER_API_CREDENTIALS: %w", err)
		}
		creds = append(creds, Credential{KeyID: fields[0], SecretHash: fields[1], Address: a})
	}
	return creds, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func addr(key string) (domain.Address, error) {
	v := os.Getenv(key)
	if v == "" {
		return domain.ZeroAddress, nil
	}
	a, err := domain.ParseAddress(v)
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("%s: %w", key, err)
	}
	return a, nil
}

func uintOr(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func timeOr(key string, fallback time.Time) (time.Time, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}
