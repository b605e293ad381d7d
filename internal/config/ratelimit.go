package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig configures the fixed-window counters guarding login and
// password recovery.  StoreFailurePolicy has no default: when limiting is
// enabled, operators must say whether an unreachable counter store lets
// requests through ("open") or rejects them ("closed").
type RateLimitConfig struct {
	Enabled            bool
	Prefix             string
	LoginMax           int
	LoginWindow        time.Duration
	RecoveryMax        int
	RecoveryWindow     time.Duration
	StoreFailurePolicy string
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rate_limit"),
		LoginMax:       envInt("RATE_LIMIT_LOGIN_MAX", 5),
		LoginWindow:    time.Duration(envInt("RATE_LIMIT_PERIOD", 300)) * time.Second,
		RecoveryMax:    envInt("RATE_LIMIT_RECOVERY_MAX", 5),
		RecoveryWindow: time.Duration(envInt("RATE_LIMIT_RECOVERY_PERIOD", 3600)) * time.Second,
	}
	if def.Enabled {
		def.StoreFailurePolicy = mustOneOf("RATE_LIMIT_STORE_FAILURE_POLICY", "open", "closed")
	}
	if def.LoginMax < 1 {
		def.LoginMax = 1
	}
	if def.RecoveryMax < 1 {
		def.RecoveryMax = 1
	}
	if def.LoginWindow < time.Second {
		def.LoginWindow = time.Second
	}
	if def.RecoveryWindow < time.Second {
		def.RecoveryWindow = time.Second
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
