package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiquest/wikiquest/progression"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestBuildDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	c, err := build(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, progression.DefaultThresholds, c.LevelThresholds)
	assert.Equal(t, int64(5), c.CheckInBaseXP)
	assert.Equal(t, int64(1000), c.MaxXPAward)
	assert.Equal(t, progression.DefaultMilestones, c.StreakMilestones)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
}

func TestBuildRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := build(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBuildFromJSON(t *testing.T) {
	path := writeConfig(t, `{
		"app": {"AppPort": "9000", "JWTSecret": "from-file", "AllowedOrigins": ["https://a.example"]},
		"database": {"Driver": "postgres", "DBHost": "db"},
		"log": {"Level": "debug", "MaxSizeMB": 10},
		"progression": {
			"Timezone": "UTC",
			"CheckInBaseXP": 10,
			"LevelThresholds": [0, 100, 250],
			"StreakMilestones": [{"Period": 7, "Bonus": 50}]
		}
	}`)
	c, err := build(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, []string{"https://a.example"}, c.AllowedOrigins)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "db", c.DBHost)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 10, c.LogMaxSizeMB)
	assert.Equal(t, []int64{0, 100, 250}, c.LevelThresholds)
	assert.Equal(t, int64(10), c.CheckInBaseXP)
	assert.Equal(t, []progression.Milestone{{Period: 7, Bonus: 50}}, c.StreakMilestones)

	levels, err := c.LevelEngine()
	require.NoError(t, err)
	assert.Equal(t, 3, levels.MaxLevel())

	streaks, err := c.StreakEngine()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, streaks.Location())
	assert.Equal(t, progression.XP(60), streaks.BonusXP(7))
}

func TestZeroXPSettingsAreKept(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("MAX_XP_AWARD", "0")
		t.Setenv("CHECKIN_BASE_XP", "0")
		c, err := build(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.Equal(t, int64(0), c.MaxXPAward)
		assert.Equal(t, int64(0), c.CheckInBaseXP)
	})

	t.Run("file", func(t *testing.T) {
		path := writeConfig(t, `{
			"app": {"JWTSecret": "x"},
			"progression": {"MaxXPAward": 0, "CheckInBaseXP": 0}
		}`)
		c, err := build(path)
		require.NoError(t, err)
		assert.Equal(t, int64(0), c.MaxXPAward)
		assert.Equal(t, int64(0), c.CheckInBaseXP)

		streaks, err := c.StreakEngine()
		require.NoError(t, err)
		assert.Equal(t, progression.XP(0), streaks.BonusXP(1))
	})

	t.Run("absent keys take defaults", func(t *testing.T) {
		path := writeConfig(t, `{"app": {"JWTSecret": "x"}, "progression": {"Timezone": "UTC"}}`)
		c, err := build(path)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), c.MaxXPAward)
		assert.Equal(t, int64(5), c.CheckInBaseXP)
	})
}

func TestJSONRejectsFractionalXP(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")

	path := writeConfig(t, `{"progression": {"LevelThresholds": [0, 300.5, 800]}}`)
	_, err := build(path)
	assert.ErrorIs(t, err, progression.ErrNonIntegerXP)

	path = writeConfig(t, `{"progression": {"MaxXPAward": 12.5}}`)
	_, err = build(path)
	assert.ErrorIs(t, err, progression.ErrNonIntegerXP)

	path = writeConfig(t, `{"progression": {"CheckInBaseXP": -3}}`)
	_, err = build(path)
	assert.ErrorIs(t, err, progression.ErrNegativeXP)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"app": {"AppPort": "9000", "JWTSecret": "x"}}`)
	t.Setenv("APP_PORT", "7000")
	t.Setenv("LEVEL_THRESHOLDS", "0, 50, 500")
	t.Setenv("STREAK_MILESTONES", "7:25, 365:500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c, err := build(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", c.AppPort)
	assert.Equal(t, []int64{0, 50, 500}, c.LevelThresholds)
	assert.Equal(t, []progression.Milestone{{Period: 7, Bonus: 25}, {Period: 365, Bonus: 500}}, c.StreakMilestones)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
}

func TestBuildRejectsInvalidProgression(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")

	t.Run("bad table", func(t *testing.T) {
		t.Setenv("LEVEL_THRESHOLDS", "0,300,200")
		_, err := build(filepath.Join(t.TempDir(), "missing.json"))
		assert.ErrorIs(t, err, progression.ErrInvalidTable)
	})

	t.Run("unparsable table", func(t *testing.T) {
		t.Setenv("LEVEL_THRESHOLDS", "0,abc")
		_, err := build(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("bad milestone", func(t *testing.T) {
		t.Setenv("STREAK_MILESTONES", "7")
		_, err := build(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := build(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("negative max award", func(t *testing.T) {
		t.Setenv("MAX_XP_AWARD", "-1")
		_, err := build(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("bad integer", func(t *testing.T) {
		t.Setenv("REDIS_PORT", "six")
		_, err := build(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})
}

func TestParseMilestones(t *testing.T) {
	ms, err := parseMilestones("365:500,30:100,7:25")
	require.NoError(t, err)
	assert.Equal(t, progression.DefaultMilestones, ms)

	_, err = parseMilestones("7:x")
	assert.Error(t, err)
}

func TestInvalidJSON(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	path := writeConfig(t, `{"app": `)
	_, err := build(path)
	assert.Error(t, err)
}
