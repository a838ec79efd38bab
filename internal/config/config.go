// README: Config loader with env defaults for HTTP, providers, stores and pricing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	MapsProviderGoogle = "google"
	MapsProviderOSM    = "osm"

	AssistantProviderGemini = "gemini"
	AssistantProviderOpenAI = "openai"

	TranscriptBackendFirebase = "firebase"
	TranscriptBackendPostgres = "postgres"
	TranscriptBackendMemory   = "memory"
)

type MapsConfig struct {
	Provider       string
	GoogleAPIKey   string
	NominatimURL   string
	OSRMURL        string
	UserAgent      string
	GeocodeTimeout time.Duration
	RouteTimeout   time.Duration
}

type AssistantConfig struct {
	Provider      string
	GeminiKey     string
	GeminiModel   string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration
}

type PricingConfig struct {
	BaseFare int64
	PerKm    int64
	PerKg    int64
	Currency string
}

type TranscriptConfig struct {
	Backend             string
	FirebaseProjectID   string
	FirebaseDatabaseURL string
	CredentialsFile     string
	Timeout             time.Duration
}

type Config struct {
	HTTP struct {
		Addr          string
		AllowedOrigin string
	}
	Log struct {
		Level string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr       string
		SessionTTL time.Duration
	}
	Maps       MapsConfig
	Assistant  AssistantConfig
	Pricing    PricingConfig
	Transcript TranscriptConfig
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("PARCEL_HTTP_ADDR", ":3000")
	cfg.HTTP.AllowedOrigin = os.Getenv("PARCEL_FRONTEND_URL")
	cfg.Log.Level = envOrDefault("PARCEL_LOG_LEVEL", "info")
	cfg.DB.DSN = os.Getenv("PARCEL_DB_DSN")
	cfg.Redis.Addr = os.Getenv("PARCEL_REDIS_ADDR")
	cfg.Redis.SessionTTL = envOrDefaultDuration("PARCEL_SESSION_TTL", 24*time.Hour)

	cfg.Maps.GoogleAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Maps.Provider = envOrDefault("PARCEL_MAPS_PROVIDER", defaultMapsProvider(cfg.Maps.GoogleAPIKey))
	cfg.Maps.NominatimURL = envOrDefault("PARCEL_NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	cfg.Maps.OSRMURL = envOrDefault("PARCEL_OSRM_URL", "https://router.project-osrm.org")
	cfg.Maps.UserAgent = envOrDefault("PARCEL_USER_AGENT", "parcel-app/1.0")
	cfg.Maps.GeocodeTimeout = envOrDefaultDuration("PARCEL_GEOCODE_TIMEOUT", 5*time.Second)
	cfg.Maps.RouteTimeout = envOrDefaultDuration("PARCEL_ROUTE_TIMEOUT", 8*time.Second)

	cfg.Assistant.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.Assistant.OpenAIKey = firstNonEmpty(os.Getenv("GROQ_API_KEY"), os.Getenv("OPENAI_API_KEY"))
	cfg.Assistant.Provider = envOrDefault("PARCEL_ASSISTANT_PROVIDER", defaultAssistantProvider(cfg.Assistant.GeminiKey))
	cfg.Assistant.GeminiModel = envOrDefault("PARCEL_GEMINI_MODEL", "gemini-2.0-flash")
	cfg.Assistant.OpenAIBaseURL = envOrDefault("PARCEL_OPENAI_BASE_URL", "https://api.groq.com/openai/v1")
	cfg.Assistant.OpenAIModel = envOrDefault("PARCEL_OPENAI_MODEL", "llama-3.3-70b-versatile")
	cfg.Assistant.Temperature = float32(envOrDefaultFloat("PARCEL_ASSISTANT_TEMPERATURE", 0.2))
	cfg.Assistant.MaxTokens = envOrDefaultInt("PARCEL_ASSISTANT_MAX_TOKENS", 150)
	cfg.Assistant.Timeout = envOrDefaultDuration("PARCEL_ASSISTANT_TIMEOUT", 15*time.Second)

	cfg.Pricing.BaseFare = int64(envOrDefaultInt("PARCEL_BASE_FARE", 50))
	cfg.Pricing.PerKm = int64(envOrDefaultInt("PARCEL_PER_KM", 8))
	cfg.Pricing.PerKg = int64(envOrDefaultInt("PARCEL_PER_KG", 15))
	cfg.Pricing.Currency = envOrDefault("PARCEL_CURRENCY", "INR")

	cfg.Transcript.FirebaseProjectID = os.Getenv("PARCEL_FIREBASE_PROJECT_ID")
	cfg.Transcript.FirebaseDatabaseURL = os.Getenv("PARCEL_FIREBASE_DATABASE_URL")
	cfg.Transcript.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	cfg.Transcript.Backend = envOrDefault("PARCEL_TRANSCRIPT_BACKEND", defaultTranscriptBackend(cfg))
	cfg.Transcript.Timeout = envOrDefaultDuration("PARCEL_TRANSCRIPT_TIMEOUT", 5*time.Second)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Maps.Provider {
	case MapsProviderGoogle:
		if c.Maps.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for maps provider %q", c.Maps.Provider)
		}
	case MapsProviderOSM:
	default:
		return fmt.Errorf("unknown maps provider %q", c.Maps.Provider)
	}

	switch c.Assistant.Provider {
	case AssistantProviderGemini:
		if c.Assistant.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for assistant provider %q", c.Assistant.Provider)
		}
	case AssistantProviderOpenAI:
		if c.Assistant.OpenAIKey == "" {
			return fmt.Errorf("GROQ_API_KEY or OPENAI_API_KEY is required for assistant provider %q", c.Assistant.Provider)
		}
	default:
		return fmt.Errorf("unknown assistant provider %q", c.Assistant.Provider)
	}
	if c.Assistant.MaxTokens <= 0 {
		return fmt.Errorf("PARCEL_ASSISTANT_MAX_TOKENS must be positive")
	}

	switch c.Transcript.Backend {
	case TranscriptBackendFirebase:
		if c.Transcript.FirebaseDatabaseURL == "" {
			return fmt.Errorf("PARCEL_FIREBASE_DATABASE_URL is required for the firebase transcript backend")
		}
	case TranscriptBackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("PARCEL_DB_DSN is required for the postgres transcript backend")
		}
	case TranscriptBackendMemory:
	default:
		return fmt.Errorf("unknown transcript backend %q", c.Transcript.Backend)
	}

	if c.Pricing.BaseFare < 0 || c.Pricing.PerKm < 0 || c.Pricing.PerKg < 0 {
		return fmt.Errorf("pricing rates must not be negative")
	}
	return nil
}

func defaultMapsProvider(googleKey string) string {
	if googleKey != "" {
		return MapsProviderGoogle
	}
	return MapsProviderOSM
}

func defaultAssistantProvider(geminiKey string) string {
	if geminiKey != "" {
		return AssistantProviderGemini
	}
	return AssistantProviderOpenAI
}

func defaultTranscriptBackend(cfg Config) string {
	switch {
	case cfg.Transcript.FirebaseDatabaseURL != "":
		return TranscriptBackendFirebase
	case cfg.DB.DSN != "":
		return TranscriptBackendPostgres
	default:
		return TranscriptBackendMemory
	}
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
