package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string
	BaseURL    string
	Debug      bool

	// portal
	PortalLoginURL string
	PortalUsername string
	PortalPassword string

	// API + operator UI auth
	APIUsername     string
	APIPasswordHash string // bcrypt
	CookieHashKey   []byte
	CookieBlockKey  []byte

	// booking policy
	ConfirmBookings    bool // false = dry-run: stop before the final confirmation click
	RequiredPlayers    int  // seats per court, booker included
	MaxSlotAttempts    int  // fallback dates tried per attempt
	MaxSelectionPasses int  // player rotation passes after blocked-player popups

	// browser
	Headless    bool
	StepTimeout time.Duration
	DebugDir    string // screenshots of failed attempts; empty disables

	DefaultsPath string

	// attempt history; empty disables persistence
	DatabaseURL string
}

func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:   getenv("LISTEN_ADDR", ":8080"),
		BaseURL:      getenv("BASE_URL", "http://localhost:8080"),
		Debug:        strings.EqualFold(getenv("LOG_LEVEL", "info"), "debug"),
		DebugDir:     os.Getenv("DEBUG_DIR"),
		DefaultsPath: getenv("DEFAULTS_PATH", "data/defaults.json"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		PortalLoginURL: os.Getenv("PORTAL_LOGIN_URL"),
		PortalUsername: os.Getenv("PORTAL_USERNAME"),
		PortalPassword: os.Getenv("PORTAL_PASSWORD"),

		APIUsername:     os.Getenv("API_USERNAME"),
		APIPasswordHash: os.Getenv("API_PASSWORD_HASH"),
	}

	if cfg.PortalUsername == "" || cfg.PortalPassword == "" {
		return Config{}, fmt.Errorf("PORTAL_USERNAME and PORTAL_PASSWORD are required")
	}
	if cfg.APIUsername == "" || cfg.APIPasswordHash == "" {
		return Config{}, fmt.Errorf("API_USERNAME and API_PASSWORD_HASH are required (generate the hash with `padelsched keys --password ...`)")
	}

	var err error
	if cfg.ConfirmBookings, err = getbool("ENABLE_BOOKING", false); err != nil {
		return Config{}, err
	}
	if cfg.Headless, err = getbool("BROWSER_HEADLESS", true); err != nil {
		return Config{}, err
	}

	if cfg.RequiredPlayers, err = getint("PLAYERS_PER_COURT", 4); err != nil {
		return Config{}, err
	}
	if cfg.RequiredPlayers < 2 {
		return Config{}, fmt.Errorf("PLAYERS_PER_COURT must be >= 2")
	}
	if cfg.MaxSlotAttempts, err = getint("MAX_FALLBACK_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.MaxSelectionPasses, err = getint("MAX_BOOKING_ATTEMPTS", 2); err != nil {
		return Config{}, err
	}

	stepSec, err := getint("BROWSER_STEP_TIMEOUT_SECONDS", 10)
	if err != nil || stepSec < 1 {
		return Config{}, fmt.Errorf("invalid BROWSER_STEP_TIMEOUT_SECONDS")
	}
	cfg.StepTimeout = time.Duration(stepSec) * time.Second

	hashKey := os.Getenv("COOKIE_HASH_KEY")
	blockKey := os.Getenv("COOKIE_BLOCK_KEY")
	if hashKey == "" || blockKey == "" {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (generate with `padelsched keys`)")
	}
	if cfg.CookieHashKey, err = base64.StdEncoding.DecodeString(strings.TrimSpace(hashKey)); err != nil {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
	}
	if cfg.CookieBlockKey, err = base64.StdEncoding.DecodeString(strings.TrimSpace(blockKey)); err != nil {
		return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
	}

	return cfg, nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getint(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func getbool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", k, v)
	}
	return b, nil
}
