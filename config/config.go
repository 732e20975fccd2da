package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wikiquest/wikiquest/progression"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config.json or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching, locks and token revocation
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Progression
	Timezone                  string
	LevelThresholds           []int64
	CheckInBaseXP             int64
	StreakMilestones          []progression.Milestone
	MaxXPAward                int64
	LeaderboardSize           int
	LeaderboardRefreshMinutes int
	LeaderboardTTLSeconds     int
}

// unsetXP marks an XP setting that neither config.json nor the environment
// provided, so zero stays a valid explicit value.
const unsetXP int64 = -1

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	c, err := build(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		c := cfg
		mu.RUnlock()
		return c
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the cached configuration. Intended for tests and embedding.
// Zero XP settings are kept as given.
func Set(c AppConfig) {
	mu.Lock()
	defer mu.Unlock()
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// build applies the precedence config.json -> defaults -> environment overrides.
func build(path string) (AppConfig, error) {
	c := AppConfig{CheckInBaseXP: unsetXP, MaxXPAward: unsetXP}
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("read %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	if c.JWTSecret == "" {
		return c, errors.New("JWT_SECRET must be set in config.json or environment variables")
	}
	if _, err := c.LevelEngine(); err != nil {
		return c, err
	}
	if _, err := c.StreakEngine(); err != nil {
		return c, err
	}
	if c.MaxXPAward < 0 {
		return c, fmt.Errorf("max xp award must not be negative, got %d", c.MaxXPAward)
	}
	return c, nil
}

// Location resolves the configured timezone used for calendar-day comparisons.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LevelEngine builds the level engine from the configured threshold table.
func (c AppConfig) LevelEngine() (*progression.LevelEngine, error) {
	table, err := progression.NewThresholdTable(c.LevelThresholds)
	if err != nil {
		return nil, err
	}
	return progression.NewLevelEngine(table), nil
}

// StreakEngine builds the streak engine from timezone and reward settings.
func (c AppConfig) StreakEngine() (*progression.StreakEngine, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	base, err := progression.ParseXP(c.CheckInBaseXP)
	if err != nil {
		return nil, fmt.Errorf("check-in base xp: %w", err)
	}
	return progression.NewStreakEngine(loc, base, c.StreakMilestones)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if pg, ok := raw["progression"].(map[string]any); ok {
		out.Timezone = getString(pg, "Timezone")
		for key, dst := range map[string]*int64{"CheckInBaseXP": &out.CheckInBaseXP, "MaxXPAward": &out.MaxXPAward} {
			v, ok := pg[key]
			if !ok {
				continue
			}
			x, err := getXP(v)
			if err != nil {
				return fmt.Errorf("progression.%s: %w", key, err)
			}
			*dst = x
		}
		out.LeaderboardSize = getInt(pg, "LeaderboardSize")
		out.LeaderboardRefreshMinutes = getInt(pg, "LeaderboardRefreshMinutes")
		out.LeaderboardTTLSeconds = getInt(pg, "LeaderboardTTLSeconds")
		if arr, ok := pg["LevelThresholds"].([]any); ok {
			for _, it := range arr {
				x, err := getXP(it)
				if err != nil {
					return fmt.Errorf("progression.LevelThresholds: entry %v: %w", it, err)
				}
				out.LevelThresholds = append(out.LevelThresholds, x)
			}
		}
		if arr, ok := pg["StreakMilestones"].([]any); ok {
			for _, it := range arr {
				m, ok := it.(map[string]any)
				if !ok {
					return fmt.Errorf("progression.StreakMilestones: invalid entry %v", it)
				}
				out.StreakMilestones = append(out.StreakMilestones, progression.Milestone{
					Period: getInt(m, "Period"),
					Bonus:  progression.XP(getInt(m, "Bonus")),
				})
			}
		}
	}

	return nil
}

// getXP accepts only whole, non-negative JSON numbers.
func getXP(v any) (int64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("non-numeric value %v", v)
	}
	x, err := progression.ParseXPNumber(f)
	if err != nil {
		return 0, err
	}
	return int64(x), nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBName == "" {
		c.DBName = "wikiquest"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if len(c.LevelThresholds) == 0 {
		c.LevelThresholds = append([]int64(nil), progression.DefaultThresholds...)
	}
	if c.CheckInBaseXP == unsetXP {
		c.CheckInBaseXP = int64(progression.DefaultCheckInXP)
	}
	if len(c.StreakMilestones) == 0 {
		c.StreakMilestones = append([]progression.Milestone(nil), progression.DefaultMilestones...)
	}
	// Zero disables the cap.
	if c.MaxXPAward == unsetXP {
		c.MaxXPAward = 1000
	}
	if c.LeaderboardSize == 0 {
		c.LeaderboardSize = 20
	}
	if c.LeaderboardRefreshMinutes == 0 {
		c.LeaderboardRefreshMinutes = 5
	}
	if c.LeaderboardTTLSeconds == 0 {
		c.LeaderboardTTLSeconds = 600
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errs []error
	intVal := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
				return
			}
			*dst = i
		}
	}
	int64Val := func(key string, dst *int64) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
				return
			}
			*dst = i
		}
	}
	strVal := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	strVal("APP_PORT", &c.AppPort)
	strVal("JWT_SECRET", &c.JWTSecret)
	intVal("TOKEN_TTL_HOURS", &c.TokenTTLHours)
	intVal("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	strVal("GIN_MODE", &c.GinMode)
	strVal("GIN_PATH", &c.GinPath)

	strVal("DB_DRIVER", &c.DBDriver)
	strVal("DATABASE_URI", &c.DatabaseURI)
	strVal("DB_HOST", &c.DBHost)
	strVal("DB_PORT", &c.DBPort)
	strVal("DB_USER", &c.DBUser)
	strVal("DB_PASSWORD", &c.DBPassword)
	strVal("DB_NAME", &c.DBName)

	strVal("REDIS_HOST", &c.RedisHost)
	intVal("REDIS_PORT", &c.RedisPort)
	intVal("REDIS_DB", &c.RedisDB)
	strVal("REDIS_PASSWORD", &c.RedisPassword)

	strVal("LOG_LEVEL", &c.LogLevel)
	strVal("LOG_PATH", &c.LogPath)
	intVal("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	intVal("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	intVal("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}

	strVal("TIMEZONE", &c.Timezone)
	int64Val("CHECKIN_BASE_XP", &c.CheckInBaseXP)
	int64Val("MAX_XP_AWARD", &c.MaxXPAward)
	intVal("LEADERBOARD_SIZE", &c.LeaderboardSize)
	intVal("LEADERBOARD_REFRESH_MINUTES", &c.LeaderboardRefreshMinutes)
	intVal("LEADERBOARD_TTL_SECONDS", &c.LeaderboardTTLSeconds)
	if v := getEnv("LEVEL_THRESHOLDS", ""); v != "" {
		values, err := parseThresholds(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LEVEL_THRESHOLDS: %w", err))
		} else {
			c.LevelThresholds = values
		}
	}
	if v := getEnv("STREAK_MILESTONES", ""); v != "" {
		ms, err := parseMilestones(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STREAK_MILESTONES: %w", err))
		} else {
			c.StreakMilestones = ms
		}
	}

	return errors.Join(errs...)
}

// parseThresholds parses "0,300,800".
func parseThresholds(raw string) ([]int64, error) {
	var out []int64
	for _, item := range splitAndTrim(raw) {
		v, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q", item)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseMilestones parses "365:500,30:100,7:25" as period:bonus pairs.
func parseMilestones(raw string) ([]progression.Milestone, error) {
	var out []progression.Milestone
	for _, item := range splitAndTrim(raw) {
		period, bonus, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid milestone %q, want period:bonus", item)
		}
		p, err := strconv.Atoi(strings.TrimSpace(period))
		if err != nil {
			return nil, fmt.Errorf("invalid milestone period %q", period)
		}
		b, err := strconv.ParseInt(strings.TrimSpace(bonus), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid milestone bonus %q", bonus)
		}
		out = append(out, progression.Milestone{Period: p, Bonus: progression.XP(b)})
	}
	return out, nil
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
