package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"btcmetrics/internal/config"
	"btcmetrics/pkg/confkit"
	"btcmetrics/pkg/provider"
)

// SetupLogging routes logx to w in plain console form. Only errors are
// shown unless debug is set. It may be called more than once; logx keeps
// the first setup, so the level and writer are applied every time.
func SetupLogging(w io.Writer, debug bool) {
	logx.MustSetup(logx.LogConf{
		ServiceName: "btcmetrics",
		Mode:        "console",
		Encoding:    "plain",
		Level:       "error",
	})
	logx.DisableStat()
	logx.SetWriter(logx.NewWriter(w))
	if debug {
		logx.SetLevel(logx.DebugLevel)
	} else {
		logx.SetLevel(logx.ErrorLevel)
	}
}

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	main := cfg.MainPath()
	if main == "" {
		main = "built-in defaults"
	}
	lines := []string{
		fmt.Sprintf("Config: %s", main),
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("HTTP timeout: %s", cfg.HTTP.Timeout),
		fmt.Sprintf("Retry (max/initial/cap): %d / %s / %s", cfg.Retry.MaxRetries, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff),
		fmt.Sprintf("Health policy: %s", cfg.Health.Policy),
		fmt.Sprintf("TTL (price/chain/history): %s / %s / %s", cfg.TTL.Price, cfg.TTL.Chain, cfg.TTL.History),
		sectionLine("Market config", cfg.Market),
		sectionLine("Chain config", cfg.Chain),
	}
	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Debug("configuration summary")
	for _, line := range lines {
		logx.Debugf("config • %s", line)
	}
}

func sectionLine(name string, section confkit.Section[provider.Config]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: built-in", name)
	}
}
