package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"btcmetrics/internal/config"
)

// Namespace is the key prefix for cached command results.
const Namespace = "btcmetrics"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLPrice   TTLClass = "price"
	TTLChain   TTLClass = "chain"
	TTLHistory TTLClass = "history"
)

// TTLSet holds the durations for each class. A non-positive duration disables caching.
type TTLSet struct {
	Price   time.Duration
	Chain   time.Duration
	History time.Duration
}

// NewTTLSet takes TTLs from config, defaulting zero values.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Price:   durationOrDefault(cfg.Price, 10*time.Second),
		Chain:   durationOrDefault(cfg.Chain, 30*time.Second),
		History: durationOrDefault(cfg.History, 5*time.Minute),
	}
}

func durationOrDefault(d, fallback time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d == 0 {
		return fallback
	}
	return d
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLPrice:
		return t.Price
	case TTLChain:
		return t.Chain
	case TTLHistory:
		return t.History
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.ToLower(strings.TrimSpace(part))
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// skipPart folds the skipped providers into a key so different chains never share entries.
func skipPart(skip []string) string {
	if len(skip) == 0 {
		return ""
	}
	s := make([]string, 0, len(skip))
	for _, name := range skip {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			s = append(s, name)
		}
	}
	sort.Strings(s)
	if len(s) == 0 {
		return ""
	}
	return "skip=" + strings.Join(s, ",")
}

// PriceKey -> btcmetrics:price:<currency>[:skip=...]
func PriceKey(currency string, skip []string) string {
	return formatKey("price", currency, skipPart(skip))
}

// VolumeKey -> btcmetrics:volume:<currency>[:skip=...]
func VolumeKey(currency string, skip []string) string {
	return formatKey("volume", currency, skipPart(skip))
}

// HistoryKey -> btcmetrics:history:<currency>:<days>[:skip=...]
func HistoryKey(currency string, days int, skip []string) string {
	return formatKey("history", currency, fmt.Sprintf("%d", days), skipPart(skip))
}

// ChainKey -> btcmetrics:chain:<endpoint>[:skip=...]
func ChainKey(endpoint string, skip []string) string {
	return formatKey("chain", strings.Trim(endpoint, "/"), skipPart(skip))
}
