package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	Log         LogConfig        `mapstructure:"log"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Economy     EconomyConfig    `mapstructure:"economy"`
	Auctions    AuctionConfig    `mapstructure:"auctions"`
	Shopkeepers ShopkeeperConfig `mapstructure:"shopkeepers"`
	World       WorldSeedConfig  `mapstructure:"world"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"` // maintenance mode, GET only
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	// RequirePlayer rejects requests without X-Player-ID that resolve to a known player.
	RequirePlayer bool   `mapstructure:"require_player"`
	AdminKey      string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN                       string `mapstructure:"dsn"`
	IdempotencyRetentionHours int    `mapstructure:"idempotency_retention_hours"`
	AuditRetentionDays        int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes    int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	KeyPrefix             string `mapstructure:"key_prefix"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type EconomyConfig struct {
	Currency       string `mapstructure:"currency"`         // default currency item type
	ClaimStackSize int    `mapstructure:"claim_stack_size"` // currency split size on claim
	MaxStackSize   int    `mapstructure:"max_stack_size"`
	InventorySlots int    `mapstructure:"inventory_slots"`
}

type AuctionConfig struct {
	MinDurationMinutes      int `mapstructure:"min_duration_minutes"`
	MaxDurationHours        int `mapstructure:"max_duration_hours"`
	DefaultDurationMinutes  int `mapstructure:"default_duration_minutes"`
	ReminderIntervalMinutes int `mapstructure:"reminder_interval_minutes"`
}

type ShopkeeperConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	ShopperFeePercent    int     `mapstructure:"shopper_fee_percent"`
	WalkSpeed            float64 `mapstructure:"walk_speed"`
	StepTeleportFallback int     `mapstructure:"step_teleport_fallback"`
	TickMs               int     `mapstructure:"tick_ms"`
	Movement             string  `mapstructure:"movement"` // teleport | walk
}

// WorldSeedConfig populates the in-memory world on startup.
type WorldSeedConfig struct {
	Players    []PlayerSeed    `mapstructure:"players"`
	Containers []ContainerSeed `mapstructure:"containers"`
}

type PlayerSeed struct {
	ID    string         `mapstructure:"id"`
	Name  string         `mapstructure:"name"`
	World string         `mapstructure:"world"`
	X     float64        `mapstructure:"x"`
	Y     float64        `mapstructure:"y"`
	Z     float64        `mapstructure:"z"`
	Items map[string]int `mapstructure:"items"`
}

type ContainerSeed struct {
	Pos   string         `mapstructure:"pos"` // world;x;y;z
	Slots int            `mapstructure:"slots"`
	Items map[string]int `mapstructure:"items"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// e.g. TRADEPOST_REDIS_ADDR
	viper.SetEnvPrefix("tradepost")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_only", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.require_player", true)
	v.SetDefault("auth.admin_key", "")
	v.SetDefault("redis.key_prefix", "tradepost")
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("database.idempotency_retention_hours", 168)
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("database.cleanup_interval_minutes", 60)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("rate_limit.qps", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("economy.currency", "DIAMOND")
	v.SetDefault("economy.claim_stack_size", 64)
	v.SetDefault("economy.max_stack_size", 64)
	v.SetDefault("economy.inventory_slots", 36)

	v.SetDefault("auctions.min_duration_minutes", 10)
	v.SetDefault("auctions.max_duration_hours", 72)
	v.SetDefault("auctions.default_duration_minutes", 30)
	v.SetDefault("auctions.reminder_interval_minutes", 15)

	v.SetDefault("shopkeepers.enabled", true)
	v.SetDefault("shopkeepers.shopper_fee_percent", 5)
	v.SetDefault("shopkeepers.walk_speed", 0.20)
	v.SetDefault("shopkeepers.step_teleport_fallback", 4)
	v.SetDefault("shopkeepers.tick_ms", 50)
	v.SetDefault("shopkeepers.movement", "teleport")
}

// Default returns a config with every default applied and no file or env lookup.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
