package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers, so
// channel allowlists can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Bot      BotConfig      `json:"bot"`
	Channels ChannelsConfig `json:"channels"`
	Intents  IntentsConfig  `json:"intents"`
	Spam     SpamConfig     `json:"spam"`
	Vision   VisionConfig   `json:"vision"`
	NLP      NLPConfig      `json:"nlp"`
	Registry RegistryConfig `json:"registry"`
	Store    StoreConfig    `json:"store"`
	Schedule ScheduleConfig `json:"schedule"`
	Logging  LoggingConfig  `json:"logging"`
}

type BotConfig struct {
	Name       string   `json:"name" env:"TOMCAT_BOT_NAME"`
	WakeWords  []string `json:"wake_words" env:"TOMCAT_BOT_WAKE_WORDS"`
	Timezone   string   `json:"timezone" env:"TOMCAT_BOT_TIMEZONE"`
	AdminIDs   []string `json:"admin_ids" env:"TOMCAT_BOT_ADMIN_IDS"`
	SilentMode bool     `json:"silent_mode" env:"TOMCAT_BOT_SILENT_MODE"`
}

type ChannelsConfig struct {
	Discord  DiscordConfig  `json:"discord"`
	Telegram TelegramConfig `json:"telegram"`
	Console  ConsoleConfig  `json:"console"`

	// Community channel roles by platform chat ID. Flows listed in
	// IntentsConfig.AllowlistIntents may run unaddressed in FeedingTeam.
	FeedingTeam FlexibleStringSlice `json:"feeding_team" env:"TOMCAT_CHANNELS_FEEDING_TEAM"`
	CatPictures FlexibleStringSlice `json:"cat_pictures" env:"TOMCAT_CHANNELS_CAT_PICTURES"`
	Logging     string              `json:"logging" env:"TOMCAT_CHANNELS_LOGGING"`
	Sandbox     string              `json:"sandbox" env:"TOMCAT_CHANNELS_SANDBOX"`
}

type DiscordConfig struct {
	Enabled   bool                `json:"enabled" env:"TOMCAT_CHANNELS_DISCORD_ENABLED"`
	Token     string              `json:"token" env:"TOMCAT_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"TOMCAT_CHANNELS_DISCORD_ALLOW_FROM"`
}

type TelegramConfig struct {
	Enabled   bool                `json:"enabled" env:"TOMCAT_CHANNELS_TELEGRAM_ENABLED"`
	Token     string              `json:"token" env:"TOMCAT_CHANNELS_TELEGRAM_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"TOMCAT_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

type ConsoleConfig struct {
	Enabled bool `json:"enabled" env:"TOMCAT_CHANNELS_CONSOLE_ENABLED"`
}

type IntentsConfig struct {
	// Alias stage has no threshold: it either matches or it does not.
	FuzzyAccept float64 `json:"fuzzy_accept" env:"TOMCAT_INTENTS_FUZZY_ACCEPT"`
	// A slightly lower score is accepted when candidate and match are close
	// in length.
	FuzzyLenBias  float64 `json:"fuzzy_len_bias" env:"TOMCAT_INTENTS_FUZZY_LEN_BIAS"`
	FuzzyLenDelta int     `json:"fuzzy_len_delta" env:"TOMCAT_INTENTS_FUZZY_LEN_DELTA"`
	ConfHigh      float64 `json:"conf_high" env:"TOMCAT_INTENTS_CONF_HIGH"`
	ConfMid       float64 `json:"conf_mid" env:"TOMCAT_INTENTS_CONF_MID"`
	// Window during which an image-dependent request waits for its image.
	PairWindowMinutes int `json:"pair_window_minutes" env:"TOMCAT_INTENTS_PAIR_WINDOW_MINUTES"`
	// Window during which a "yes" reply upgrades a low-confidence feed update.
	ClarifyWindowMinutes int      `json:"clarify_window_minutes" env:"TOMCAT_INTENTS_CLARIFY_WINDOW_MINUTES"`
	AllowlistIntents     []string `json:"allowlist_intents" env:"TOMCAT_INTENTS_ALLOWLIST_INTENTS"`
}

type SpamConfig struct {
	Enabled         bool     `json:"enabled" env:"TOMCAT_SPAM_ENABLED"`
	MinAccountDays  int      `json:"min_account_days" env:"TOMCAT_SPAM_MIN_ACCOUNT_DAYS"`
	TrustedRoles    []string `json:"trusted_roles" env:"TOMCAT_SPAM_TRUSTED_ROLES"`
	FuzzyThreshold  float64  `json:"fuzzy_threshold" env:"TOMCAT_SPAM_FUZZY_THRESHOLD"`
	ModelThreshold  float64  `json:"model_threshold" env:"TOMCAT_SPAM_MODEL_THRESHOLD"`
	Phrases         []string `json:"phrases"`
	DeleteOnVerdict bool     `json:"delete_on_verdict" env:"TOMCAT_SPAM_DELETE_ON_VERDICT"`
}

type VisionConfig struct {
	Enabled  bool   `json:"enabled" env:"TOMCAT_VISION_ENABLED"`
	BaseURL  string `json:"base_url" env:"TOMCAT_VISION_BASE_URL"`
	BudgetMS int    `json:"budget_ms" env:"TOMCAT_VISION_BUDGET_MS"`
}

type NLPConfig struct {
	Enabled  bool   `json:"enabled" env:"TOMCAT_NLP_ENABLED"`
	Provider string `json:"provider" env:"TOMCAT_NLP_PROVIDER"` // sidecar | openai
	BaseURL  string `json:"base_url" env:"TOMCAT_NLP_BASE_URL"`
	APIKey   string `json:"api_key" env:"TOMCAT_NLP_API_KEY"`
	Model    string `json:"model" env:"TOMCAT_NLP_MODEL"`
	BudgetMS int    `json:"budget_ms" env:"TOMCAT_NLP_BUDGET_MS"`
}

// RegistryConfig is the static entity registry: canonical display names plus
// nickname variants for cats and feeding stations. Loaded once at startup and
// treated as immutable afterwards.
type RegistryConfig struct {
	Cats             []EntityConfig `json:"cats"`
	Stations         []EntityConfig `json:"stations"`
	StationStopwords []string       `json:"station_stopwords"`
}

type EntityConfig struct {
	Name      string   `json:"name"`
	Nicknames []string `json:"nicknames,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	PhotoURL  string   `json:"photo_url,omitempty"`
}

type StoreConfig struct {
	Path string `json:"path" env:"TOMCAT_STORE_PATH"`
}

type ScheduleConfig struct {
	Enabled      bool   `json:"enabled" env:"TOMCAT_SCHEDULE_ENABLED"`
	ReminderCron string `json:"reminder_cron" env:"TOMCAT_SCHEDULE_REMINDER_CRON"`
	SweepCron    string `json:"sweep_cron" env:"TOMCAT_SCHEDULE_SWEEP_CRON"`
}

type LoggingConfig struct {
	FileEnabled     bool   `json:"file_enabled" env:"TOMCAT_LOGGING_FILE_ENABLED"`
	FilePath        string `json:"file_path" env:"TOMCAT_LOGGING_FILE_PATH"`
	RotationEnabled bool   `json:"rotation_enabled" env:"TOMCAT_LOGGING_ROTATION_ENABLED"`
	MaxAgeDays      int    `json:"max_age_days" env:"TOMCAT_LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB       int    `json:"max_size_mb" env:"TOMCAT_LOGGING_MAX_SIZE_MB"`
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:      "tomcat",
			WakeWords: []string{"tomcat", "tom cat", "tom-kat", "tom kat"},
			Timezone:  "America/Chicago",
		},
		Channels: ChannelsConfig{
			Discord:  DiscordConfig{AllowFrom: FlexibleStringSlice{}},
			Telegram: TelegramConfig{AllowFrom: FlexibleStringSlice{}},
			Console:  ConsoleConfig{Enabled: false},
		},
		Intents: IntentsConfig{
			FuzzyAccept:          0.88,
			FuzzyLenBias:         0.82,
			FuzzyLenDelta:        3,
			ConfHigh:             0.88,
			ConfMid:              0.75,
			PairWindowMinutes:    10,
			ClarifyWindowMinutes: 2,
			AllowlistIntents:     []string{"feed_update", "sub_request", "sub_accept", "feeding_status"},
		},
		Spam: SpamConfig{
			Enabled:        true,
			MinAccountDays: 30,
			TrustedRoles:   []string{"officer", "feeder", "moderator"},
			FuzzyThreshold: 0.85,
			ModelThreshold: 0.90,
			Phrases: []string{
				"free macbook giveaway",
				"tickets to the concert dm me",
				"dm me if interested",
				"first come first serve",
				"crypto investment opportunity",
			},
			DeleteOnVerdict: true,
		},
		Vision: VisionConfig{
			Enabled:  false,
			BaseURL:  "http://127.0.0.1:8601",
			BudgetMS: 8000,
		},
		NLP: NLPConfig{
			Enabled:  false,
			Provider: "sidecar",
			BaseURL:  "http://127.0.0.1:8602",
			BudgetMS: 2500,
		},
		Registry: defaultRegistry(),
		Store: StoreConfig{
			Path: "~/.tomcat/tomcat.db",
		},
		Schedule: ScheduleConfig{
			Enabled:      true,
			ReminderCron: "0 20 * * *",
			SweepCron:    "*/5 * * * *",
		},
		Logging: LoggingConfig{
			FileEnabled:     true,
			FilePath:        "~/.tomcat/tomcat.log",
			RotationEnabled: true,
			MaxAgeDays:      7,
			MaxSizeMB:       50,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	resolveSecretEnvRefs(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engines cannot start with. A missing
// or empty registry is the one hard startup error in this system.
func (c *Config) Validate() error {
	if len(c.Registry.Cats) == 0 && len(c.Registry.Stations) == 0 {
		return fmt.Errorf("registry is empty: at least one cat or station is required")
	}
	for _, e := range append(append([]EntityConfig{}, c.Registry.Cats...), c.Registry.Stations...) {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("registry entity with empty name")
		}
	}
	if c.Intents.PairWindowMinutes <= 0 {
		return fmt.Errorf("pair_window_minutes must be positive, got %d", c.Intents.PairWindowMinutes)
	}
	return nil
}

// resolveSecretEnvRefs expands "$VAR" and "${VAR}" values so tokens never
// have to live in the config file.
func resolveSecretEnvRefs(cfg *Config) {
	targets := []*string{
		&cfg.Channels.Discord.Token,
		&cfg.Channels.Telegram.Token,
		&cfg.NLP.APIKey,
	}
	for _, t := range targets {
		*t = resolveEnvRef(*t)
	}
}

func resolveEnvRef(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return v
	}
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		key := strings.TrimSpace(s[2 : len(s)-1])
		if key == "" {
			return v
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return v
	}
	if strings.HasPrefix(s, "$") && len(s) > 1 {
		if val, ok := os.LookupEnv(strings.TrimSpace(s[1:])); ok {
			return val
		}
	}
	return v
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the sqlite path with ~ expanded.
func (c *Config) StorePath() string {
	return ExpandHome(c.Store.Path)
}

func ExpandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
