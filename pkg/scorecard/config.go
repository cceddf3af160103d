package scorecard

import (
	"os"
	"strconv"
)

// LoaderConfig controls how aggregates are assembled.
type LoaderConfig struct {
	// UseRPC selects the single-procedure fast path when an AggregateRPC
	// is wired. The multi-query path remains the fallback on transport
	// failure. Default false.
	UseRPC bool

	// IncludeManagerOfTeamOwner adds "manager of the team scorecard's
	// owner" to the relations that qualify a scorecard as yours in
	// listings. Default false. The qualifying-relation set has changed
	// across this system's history, so it is a predicate toggle rather
	// than a hardcoded expression.
	IncludeManagerOfTeamOwner bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		UseRPC:                    false,
		IncludeManagerOfTeamOwner: false,
	}
}

// LoaderConfigFromEnv loads config from environment variables:
// SCORECARD_USE_RPC, SCORECARD_LISTINGS_MANAGER_OF_TEAM_OWNER.
func LoaderConfigFromEnv() *LoaderConfig {
	cfg := DefaultLoaderConfig()

	if v := os.Getenv("SCORECARD_USE_RPC"); v != "" {
		cfg.UseRPC, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SCORECARD_LISTINGS_MANAGER_OF_TEAM_OWNER"); v != "" {
		cfg.IncludeManagerOfTeamOwner, _ = strconv.ParseBool(v)
	}

	return cfg
}
