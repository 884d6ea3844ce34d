package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Feeds  FeedsConfig  `mapstructure:"feeds"`
	Ingest IngestConfig `mapstructure:"ingest"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// FeedsConfig points at the NDW open data documents. All three are
// gzip-compressed DATEX II XML fetched over plain HTTP GET.
type FeedsConfig struct {
	MeasurementURL  string        `mapstructure:"measurement_url"`
	TrafficSpeedURL string        `mapstructure:"trafficspeed_url"`
	TravelTimeURL   string        `mapstructure:"traveltime_url"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

type IngestConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ReferenceRefresh string        `mapstructure:"reference_refresh"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("feeds.measurement_url", "https://opendata.ndw.nu/measurement.xml.gz")
	v.SetDefault("feeds.trafficspeed_url", "https://opendata.ndw.nu/trafficspeed.xml.gz")
	v.SetDefault("feeds.traveltime_url", "https://opendata.ndw.nu/traveltime.xml.gz")
	v.SetDefault("feeds.fetch_timeout", "60s")
	v.SetDefault("ingest.poll_interval", "60s")
	v.SetDefault("ingest.reference_refresh", "@every 6h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
