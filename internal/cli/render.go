package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"btcmetrics/internal/service"
	"btcmetrics/pkg/chain"
	"btcmetrics/pkg/health"
	"btcmetrics/pkg/market/indicators"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	valueColor = color.New(color.Bold)
	upColor    = color.New(color.FgGreen)
	downColor  = color.New(color.FgRed)
	warnColor  = color.New(color.FgYellow)
	dimColor   = color.New(color.Faint)
)

// HealthRow is one provider in the health table.
type HealthRow struct {
	Family    string `json:"family"`
	Provider  string `json:"provider"`
	Healthy   bool   `json:"healthy"`
	LastError string `json:"lastError,omitempty"`
}

// HealthRows flattens a probe result and the tracker snapshot into sorted rows.
func HealthRows(family string, probe map[string]bool, snapshot map[string]health.Status) []HealthRow {
	rows := make([]HealthRow, 0, len(probe))
	for name, ok := range probe {
		rows = append(rows, HealthRow{Family: family, Provider: name, Healthy: ok, LastError: snapshot[name].LastError})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Provider < rows[j].Provider })
	return rows
}

// Renderer writes reports either as JSON or as coloured text.
type Renderer struct {
	out  io.Writer
	json bool
}

// NewRenderer writes to out; jsonMode selects JSON output.
func NewRenderer(out io.Writer, jsonMode bool) *Renderer {
	return &Renderer{out: out, json: jsonMode}
}

// JSON reports whether the renderer emits JSON.
func (r *Renderer) JSON() bool { return r.json }

// Render writes v.
func (r *Renderer) Render(v any) error {
	if r.json {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	switch rep := v.(type) {
	case service.PriceReport:
		r.title("Bitcoin price")
		r.line("Price", fmt.Sprintf("%s %s", money(rep.Price), strings.ToUpper(rep.Currency)))
		r.source(rep.Source)
	case service.VolumeReport:
		r.title("Bitcoin 24h volume")
		r.line("Volume", fmt.Sprintf("%s %s", money(rep.Volume24h), strings.ToUpper(rep.Currency)))
		if rep.Price > 0 {
			r.line("Price", fmt.Sprintf("%s %s", money(rep.Price), strings.ToUpper(rep.Currency)))
		}
		r.source(rep.Source)
	case service.HistoryReport:
		r.title(fmt.Sprintf("Bitcoin price, last %d days", rep.Days))
		cur := strings.ToUpper(rep.Currency)
		r.line("Open", money(rep.Open)+" "+cur)
		r.line("Close", money(rep.Close)+" "+cur)
		r.line("High", money(rep.High)+" "+cur)
		r.line("Low", money(rep.Low)+" "+cur)
		r.line("Change", percent(rep.ChangePercent))
		r.line("Points", humanize.Comma(int64(len(rep.Points))))
		if ind := rep.Indicators; ind.SMA != nil {
			r.line(fmt.Sprintf("SMA(%d)", indicators.MAPeriod), money(*ind.SMA)+" "+cur)
			r.line(fmt.Sprintf("EMA(%d)", indicators.MAPeriod), money(*ind.EMA)+" "+cur)
		}
		if rsi := rep.Indicators.RSI; rsi != nil {
			r.line(fmt.Sprintf("RSI(%d)", indicators.RSIPeriod), fmt.Sprintf("%.1f", *rsi))
		}
		r.source(rep.Source)
	case service.BlocksReport:
		r.title("Recent blocks")
		tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "HEIGHT\tTIME\tTXS\tSIZE\tHASH")
		for _, b := range rep.Blocks {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", humanize.Comma(b.Height), b.Time().Format(time.RFC3339),
				humanize.Comma(int64(b.TxCount)), humanize.Bytes(uint64(b.Size)), shortHash(b.ID))
		}
		_ = tw.Flush()
		r.source(rep.Source)
	case service.MempoolReport:
		r.title("Mempool")
		r.line("Transactions", humanize.Comma(rep.Count))
		r.line("Virtual size", fmt.Sprintf("%.2f MvB", float64(rep.VSize)/1e6))
		r.line("Total fees", fmt.Sprintf("%s BTC", humanize.FtoaWithDigits(rep.TotalFee/1e8, 8)))
		r.line("Congestion", congestion(rep.Congestion))
		r.source(rep.Source)
	case service.FeesReport:
		r.title("Recommended fees (sat/vB)")
		r.line("Fastest", feeRate(rep.FastestFee))
		r.line("Half hour", feeRate(rep.HalfHourFee))
		r.line("Hour", feeRate(rep.HourFee))
		r.line("Economy", feeRate(rep.EconomyFee))
		r.line("Minimum", feeRate(rep.MinimumFee))
		r.source(rep.Source)
	case service.DifficultyReport:
		r.title("Difficulty adjustment")
		r.line("Progress", fmt.Sprintf("%.2f%%", rep.ProgressPercent))
		r.line("Estimated change", percent(rep.DifficultyChange))
		r.line("Previous change", percent(rep.PreviousRetarget))
		r.line("Remaining blocks", humanize.Comma(rep.RemainingBlocks))
		r.line("Retarget height", humanize.Comma(rep.NextRetargetHeight))
		r.line("Estimated date", rep.RetargetAt().Format(time.RFC1123))
		r.source(rep.Source)
	case service.HashrateReport:
		r.title("Network hashrate")
		r.line("Current", humanize.SIWithDigits(rep.CurrentHashrate, 2, "H/s"))
		r.line("Difficulty", humanize.SIWithDigits(rep.CurrentDifficulty, 2, ""))
		if n := len(rep.Hashrates); n > 1 {
			r.line("3d change", percent((rep.Hashrates[n-1].AvgHashrate/rep.Hashrates[0].AvgHashrate-1)*100))
		}
		r.source(rep.Source)
	case service.HalvingReport:
		r.title("Next halving")
		r.line("Current height", humanize.Comma(rep.CurrentHeight))
		r.line("Halving height", humanize.Comma(rep.NextHeight))
		r.line("Blocks remaining", humanize.Comma(rep.BlocksRemaining))
		r.line("Epoch progress", fmt.Sprintf("%.2f%%", rep.ProgressPercent))
		r.line("Subsidy", fmt.Sprintf("%s BTC -> %s BTC", rep.CurrentSubsidy, rep.NextSubsidy))
		r.line("Estimated date", fmt.Sprintf("%s (%s)", rep.EstimatedAt.Format("2006-01-02"), humanize.Time(rep.EstimatedAt)))
		r.source(rep.Source)
	case []HealthRow:
		r.title("Provider health")
		tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FAMILY\tPROVIDER\tSTATUS\tLAST ERROR")
		for _, row := range rep {
			status := upColor.Sprint("up")
			if !row.Healthy {
				status = downColor.Sprint("down")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Family, row.Provider, status, row.LastError)
		}
		_ = tw.Flush()
	default:
		_, err := fmt.Fprintln(r.out, v)
		return err
	}
	return nil
}

func (r *Renderer) title(s string) {
	titleColor.Fprintln(r.out, s)
}

func (r *Renderer) line(label, value string) {
	fmt.Fprintf(r.out, "  %-18s %s\n", label+":", valueColor.Sprint(value))
}

func (r *Renderer) source(src service.Source) {
	dimColor.Fprintf(r.out, "  via %s at %s\n", src.Provider, src.FetchedAt.Format(time.RFC3339))
}

// money renders v with thousands separators and exactly two decimals.
func money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	whole := d.Truncate(0)
	frac := d.Sub(whole).Abs().StringFixed(2)[1:]
	sign := ""
	if d.IsNegative() && whole.IsZero() {
		sign = "-"
	}
	return sign + humanize.Comma(whole.IntPart()) + frac
}

func feeRate(v float64) string {
	return humanize.FtoaWithDigits(v, 2)
}

func percent(v float64) string {
	s := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return upColor.Sprint(s)
	case v < 0:
		return downColor.Sprint(s)
	default:
		return s
	}
}

func congestion(level string) string {
	switch level {
	case chain.CongestionLow:
		return upColor.Sprint(level)
	case chain.CongestionMedium:
		return warnColor.Sprint(level)
	default:
		return downColor.Sprint(level)
	}
}

func shortHash(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "…" + id[len(id)-8:]
}
