package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del copier.
type Config struct {
	Copier   CopierConfig   `yaml:"copier"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Journal  JournalConfig  `yaml:"journal"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Report   ReportConfig   `yaml:"report"`
	Log      LogConfig      `yaml:"log"`
}

// CopierConfig controla los monitores de wallets.
type CopierConfig struct {
	Wallets             []string `yaml:"wallets"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
	FetchLimit          int      `yaml:"fetch_limit"` // trades recientes por poll
}

// StrategyConfig selecciona el modo de sizing. Se relee en caliente con SIGHUP.
type StrategyConfig struct {
	Mode  string  `yaml:"mode"`  // fixed | proportional | portfolio_share
	Param float64 `yaml:"param"` // $ por orden (fixed) o multiplicador
}

// RiskConfig son los guardas previos a cada orden espejo.
type RiskConfig struct {
	MinBalanceUSDC float64 `yaml:"min_balance_usdc"` // suelo de cash bajo el cual se pausa el copiado
	OrderType      string  `yaml:"order_type"`       // FOK | GTC | GTD
}

// APIConfig contiene los base URLs de las APIs y el RPC de Polygon.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
	DataBase  string `yaml:"data_base"`
	RPCURL    string `yaml:"rpc_url"`
}

// AuthConfig son las credenciales de firma. La clave privada solo se acepta
// por entorno, nunca por YAML.
type AuthConfig struct {
	PrivateKey    string `yaml:"-"`
	FunderAddress string `yaml:"funder_address"`
	SignatureType int    `yaml:"signature_type"` // 0 EOA | 1 proxy | 2 gnosis safe
}

// StorageConfig controla dónde se persiste el audit trail.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// JournalConfig controla el journal JSONL rotado.
type JournalConfig struct {
	Dir string `yaml:"dir"`
}

// AlertsConfig es el canal SMTP de alertas e informes.
type AlertsConfig struct {
	SMTPServer   string `yaml:"smtp_server"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"-"` // solo por entorno
	SMTPPassword string `yaml:"-"` // solo por entorno
	Receiver     string `yaml:"receiver"`
}

// ReportConfig programa el informe diario.
type ReportConfig struct {
	Schedule string `yaml:"schedule"` // expresión cron, vacío = 09:00 UTC
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default devuelve una configuración con solo los defaults aplicados.
// La usan los comandos de solo-lectura que no requieren config.yaml.
func Default() *Config {
	var cfg Config
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg
}

// PollInterval devuelve el intervalo de polling como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Copier.PollIntervalSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYMARKET_PRIVATE_KEY"); v != "" {
		cfg.Auth.PrivateKey = v
	}
	if v := os.Getenv("POLYMARKET_FUNDER_ADDRESS"); v != "" {
		cfg.Auth.FunderAddress = v
	}
	if v := os.Getenv("POLYMARKET_SIGNATURE_TYPE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.SignatureType = n
		}
	}
	if v := os.Getenv("MIN_REQUIRED_USDC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.MinBalanceUSDC = f
		}
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		cfg.Alerts.SMTPServer = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Alerts.SMTPPort = n
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Alerts.SMTPUser = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Alerts.SMTPPassword = v
	}
	if v := os.Getenv("EMAIL_RECEIVER"); v != "" {
		cfg.Alerts.Receiver = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Copier.PollIntervalSeconds <= 0 {
		cfg.Copier.PollIntervalSeconds = 5
	}
	if cfg.Copier.FetchLimit <= 0 {
		cfg.Copier.FetchLimit = 15
	}
	if cfg.Strategy.Mode == "" {
		cfg.Strategy.Mode = "fixed"
	}
	if cfg.Strategy.Param <= 0 {
		cfg.Strategy.Param = 10
	}
	if cfg.Risk.MinBalanceUSDC <= 0 {
		cfg.Risk.MinBalanceUSDC = 5.0
	}
	if cfg.Risk.OrderType == "" {
		cfg.Risk.OrderType = "FOK"
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.RPCURL == "" {
		cfg.API.RPCURL = "https://polygon-rpc.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polycopy.db"
	}
	if cfg.Journal.Dir == "" {
		cfg.Journal.Dir = "journal"
	}
	if cfg.Alerts.SMTPPort == 0 {
		cfg.Alerts.SMTPPort = 587
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza combinaciones que romperían el pipeline en runtime.
func validate(cfg *Config) error {
	switch cfg.Strategy.Mode {
	case "fixed", "proportional", "portfolio_share":
	default:
		return fmt.Errorf("strategy.mode %q inválido", cfg.Strategy.Mode)
	}
	switch cfg.Risk.OrderType {
	case "FOK", "GTC", "GTD":
	default:
		return fmt.Errorf("risk.order_type %q inválido", cfg.Risk.OrderType)
	}
	if cfg.Auth.SignatureType < 0 || cfg.Auth.SignatureType > 2 {
		return fmt.Errorf("auth.signature_type %d fuera de rango", cfg.Auth.SignatureType)
	}
	return nil
}
