package publish

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/yourorg/funding-rate-ranker/internal/model"
)

const (
	separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

	highestTitle = "Highest Funding Rates 📊"
	lowestTitle  = "Lowest Funding Rates 📉"
)

// Render produces the Markdown report for one cycle.
func Render(largest, smallest []model.FundingRate, at time.Time) string {
	return strings.Join(Blocks(largest, smallest, at), "")
}

// Blocks returns the report as indivisible pieces: header, section titles,
// one piece per entry, separators and the footer. Joined they form Render's
// output.
func Blocks(largest, smallest []model.FundingRate, at time.Time) []string {
	blocks := make([]string, 0, len(largest)+len(smallest)+6)
	blocks = append(blocks, "🚀 *Funding Rate Report*\n"+separator+"\n")

	if len(largest) > 0 {
		blocks = append(blocks, section(highestTitle, largest)...)
	}
	if len(largest) > 0 && len(smallest) > 0 {
		blocks = append(blocks, separator+"\n")
	}
	if len(smallest) > 0 {
		blocks = append(blocks, section(lowestTitle, smallest)...)
	}

	blocks = append(blocks, separator+"📅 Generated at: "+at.UTC().Format("2006-01-02 15:04")+" UTC")
	return blocks
}

func section(title string, rates []model.FundingRate) []string {
	out := make([]string, 0, len(rates)+1)
	out = append(out, fmt.Sprintf("🔸 *%s*\n\n", title))
	for _, r := range rates {
		out = append(out, entry(r))
	}
	return out
}

// markdownEscaper escapes the characters that open an entity in Telegram's
// legacy Markdown mode.
var markdownEscaper = strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`)

func entry(r model.FundingRate) string {
	return fmt.Sprintf("📈 *%s* on *%s*\n├ 1h: %.4f%%\n├ 2h: %.4f%%\n├ 4h: %.4f%%\n└ 8h: %.4f%%\n\n",
		markdownEscaper.Replace(r.Asset), markdownEscaper.Replace(r.Exchange),
		r.RatePct1h, r.RatePct2h, r.RatePct4h, r.RatePct8h)
}

// Split packs blocks into messages of at most limit UTF-16 code units, the
// unit Telegram measures text in. Blocks are never cut; one longer than
// limit is sent on its own.
func Split(blocks []string, limit int) []string {
	var (
		messages []string
		current  strings.Builder
		size     int
	)

	for _, b := range blocks {
		n := textLength(b)
		if size > 0 && size+n > limit {
			messages = append(messages, current.String())
			current.Reset()
			size = 0
		}
		current.WriteString(b)
		size += n
	}
	if size > 0 {
		messages = append(messages, current.String())
	}
	return messages
}

func textLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}
