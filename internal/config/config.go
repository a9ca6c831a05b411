package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Modos de verificación. Un proceso usa exactamente uno.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// MinSigningKeyLen es el largo mínimo de la clave HS256 en bytes.
const MinSigningKeyLen = 32

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		// Proxies (IP o CIDR) cuyo X-Forwarded-For se honra. Vacío: solo RemoteAddr.
		TrustedProxies  []string      `yaml:"trusted_proxies"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Auth struct {
		// local | remote
		Mode string `yaml:"mode"`
		// Allow-list de rutas sin identidad. Formato "[METHOD ]/path", con "*" por
		// segmento y "/**" como sufijo.
		PublicPaths []string `yaml:"public_paths"`
		// Roles exige un rol por patrón de ruta, ej. "/api/admin/**": ADMIN.
		Roles map[string]string `yaml:"roles"`
	} `yaml:"auth"`

	JWT struct {
		SigningKey string        `yaml:"signing_key"`
		Issuer     string        `yaml:"issuer"`
		TTL        time.Duration `yaml:"ttl"`
	} `yaml:"jwt"`

	Supabase struct {
		URL                  string        `yaml:"url"`
		APIKey               string        `yaml:"api_key"`
		Timeout              time.Duration `yaml:"timeout"`
		ProfileFetchAttempts int           `yaml:"profile_fetch_attempts"`
		ProfileFetchDelay    time.Duration `yaml:"profile_fetch_delay"`
	} `yaml:"supabase"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"storage"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Limit   int           `yaml:"limit"`
		Window  time.Duration `yaml:"window"`
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"rate"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int    `yaml:"min_length"`
			RequireUpper  bool   `yaml:"require_upper"`
			RequireLower  bool   `yaml:"require_lower"`
			RequireDigit  bool   `yaml:"require_digit"`
			RequireSymbol bool   `yaml:"require_symbol"`
			Symbols       string `yaml:"symbols"`
		} `yaml:"password_policy"`
		PasswordBlacklistPath string `yaml:"password_blacklist_path"`
		BcryptCost            int    `yaml:"bcrypt_cost"`
	} `yaml:"security"`
}

// DefaultPublicPaths es el allow-list por defecto: endpoints de cuenta,
// disponibilidad, lectura de rutas, health y callback.
var DefaultPublicPaths = []string{
	"POST /api/users/register",
	"POST /api/users/login",
	"GET /api/users/check-username",
	"GET /api/users/check-email",
	"POST /api/auth/signup",
	"POST /api/auth/login",
	"GET /api/auth/google-callback",
	"GET /api/routes/**",
	"GET /healthz",
	"GET /readyz",
}

// Defaults retorna una configuración completa para desarrollo (modo local, storage memory).
func Defaults() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.CORSAllowedOrigins == nil {
		c.Server.CORSAllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = ModeLocal
	}
	if c.Auth.PublicPaths == nil {
		c.Auth.PublicPaths = append([]string(nil), DefaultPublicPaths...)
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "para"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.Supabase.Timeout == 0 {
		c.Supabase.Timeout = 10 * time.Second
	}
	if c.Supabase.ProfileFetchAttempts == 0 {
		c.Supabase.ProfileFetchAttempts = 3
	}
	if c.Supabase.ProfileFetchDelay == 0 {
		c.Supabase.ProfileFetchDelay = time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 10
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 10
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Rate.Redis.Prefix == "" {
		c.Rate.Redis.Prefix = "para:rl:"
	}
	// Política por defecto: >= 8, dígito, minúscula, mayúscula y un símbolo del set.
	pp := &c.Security.PasswordPolicy
	if pp.MinLength == 0 {
		pp.MinLength = 8
		pp.RequireUpper = true
		pp.RequireLower = true
		pp.RequireDigit = true
		pp.RequireSymbol = true
	}
	if pp.Symbols == "" {
		pp.Symbols = "!.,@#$%^&+="
	}
}

// Load lee el YAML, aplica defaults y overrides de entorno, y valida.
// Un path vacío arranca desde Defaults + entorno.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		// blacklist relativa al directorio del YAML
		if p := strings.TrimSpace(c.Security.PasswordBlacklistPath); p != "" && !filepath.IsAbs(p) {
			c.Security.PasswordBlacklistPath = filepath.Join(filepath.Dir(path), p)
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate chequea los requisitos del modo elegido. No hay fallback entre modos.
func (c *Config) Validate() error {
	var errs []error

	switch c.Auth.Mode {
	case ModeLocal:
		if len(c.JWT.SigningKey) < MinSigningKeyLen {
			errs = append(errs, fmt.Errorf("jwt.signing_key must be at least %d bytes in local mode", MinSigningKeyLen))
		}
		if c.JWT.TTL <= 0 {
			errs = append(errs, errors.New("jwt.ttl must be positive"))
		}
	case ModeRemote:
		if strings.TrimSpace(c.Supabase.URL) == "" {
			errs = append(errs, errors.New("supabase.url is required in remote mode"))
		}
		if strings.TrimSpace(c.Supabase.APIKey) == "" {
			errs = append(errs, errors.New("supabase.api_key is required in remote mode"))
		}
		if c.Supabase.Timeout <= 0 {
			errs = append(errs, errors.New("supabase.timeout must be positive"))
		}
		if c.Supabase.ProfileFetchAttempts < 1 {
			errs = append(errs, errors.New("supabase.profile_fetch_attempts must be >= 1"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be %q or %q, got %q", ModeLocal, ModeRemote, c.Auth.Mode))
	}

	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p))
		}
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}

	if c.Rate.Enabled && (c.Rate.Limit <= 0 || c.Rate.Window <= 0) {
		errs = append(errs, errors.New("rate.limit and rate.window must be positive when rate is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func validProxy(p string) bool {
	p = strings.TrimSpace(p)
	if strings.Contains(p, "/") {
		_, err := netip.ParsePrefix(p)
		return err == nil
	}
	_, err := netip.ParseAddr(p)
	return err == nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// AUTH
	if v, ok := getEnvStr("AUTH_MODE"); ok {
		c.Auth.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvCSV("AUTH_PUBLIC_PATHS"); ok {
		c.Auth.PublicPaths = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvDur("JWT_TTL"); ok {
		c.JWT.TTL = v
	}

	// SUPABASE
	if v, ok := getEnvStr("SUPABASE_URL"); ok {
		c.Supabase.URL = v
	}
	if v, ok := getEnvStr("SUPABASE_API_KEY"); ok {
		c.Supabase.APIKey = v
	}
	if v, ok := getEnvDur("SUPABASE_TIMEOUT"); ok {
		c.Supabase.Timeout = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
		if c.Storage.Driver == "" {
			c.Storage.Driver = "postgres"
		}
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LIMIT"); ok {
		c.Rate.Limit = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Rate.Redis.DB = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECURITY_PASSWORD_BLACKLIST_PATH"); ok {
		c.Security.PasswordBlacklistPath = v
	}
}
