package config

import (
	"os"
	"strings"
)

// StockStrictGenericFilter restricts stock submissions to products whose
// generic (ZGEN) code is numeric. The lenient default sends every product with
// stock and lets CENABAST reject rows it cannot match.
//
// Set via env:
// - CENABAST_STOCK_STRICT_ZGEN=true
func StockStrictGenericFilter() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CENABAST_STOCK_STRICT_ZGEN")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// AllowSimulatedToken decides whether a locally signed stand-in token may be
// used when every broker auth path fails. Defaults to allowed outside
// production.
//
// Set via env:
// - CENABAST_FAKE_TOKEN_ENABLED=true|false
func AllowSimulatedToken() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("CENABAST_FAKE_TOKEN_ENABLED"))) {
	case "false", "0", "no":
		return false
	case "true", "1", "yes":
		return true
	}
	return !IsProduction()
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// CronSecret guards the scheduler tick endpoint. Empty means the guard is
// only enforced in production.
func CronSecret() string {
	return strings.TrimSpace(os.Getenv("CRON_SECRET"))
}
