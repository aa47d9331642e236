package feed

import (
	"strconv"
	"strings"

	"github.com/mooney/market-feed/internal/model"
)

// looksLikeJSON is a conservative structural test applied before any JSON
// parser: ciphertext and pipe data must never reach json.Unmarshal.
func looksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) < 2 {
		return false
	}
	return (strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}")) ||
		(strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"))
}

// parsePipeFrame extracts ticks from a pipe-delimited frame (raw or
// decrypted). Layout: <channelOrFlag>|<channel>|<count>|<rec>|<rec>|...
//
// The channel id may sit in field 0 or field 1 depending on the upstream
// framing variant, so both positions are probed. An unparseable or
// non-positive count falls back to consuming every remaining field as a
// record (fail-open). Records are ^-delimited: field 0 is the symbol,
// field 2 the traded price; records with fewer than 3 fields, a blank
// symbol or a non-positive price are skipped.
func parsePipeFrame(frame, channel string) []model.Tick {
	if strings.TrimSpace(frame) == "" {
		return nil
	}

	f := strings.Split(frame, "|")
	if len(f) < 4 {
		return nil
	}

	var chIdx int
	switch {
	case strings.EqualFold(strings.TrimSpace(f[1]), channel):
		chIdx = 1
	case strings.EqualFold(strings.TrimSpace(f[0]), channel):
		chIdx = 0
	default:
		// Frame belongs to an unhandled channel.
		return nil
	}

	countIdx := chIdx + 1
	recStart := chIdx + 2

	count := parseIntSafe(f[countIdx])
	if count <= 0 {
		count = len(f) - recStart
	}

	var ticks []model.Tick
	for i := 0; i < count; i++ {
		idx := recStart + i
		if idx >= len(f) {
			break
		}
		rec := f[idx]
		if strings.TrimSpace(rec) == "" {
			continue
		}

		// rec: symbol^time^price^...
		a := strings.Split(rec, "^")
		if len(a) < 3 {
			continue
		}

		symbol := strings.TrimSpace(a[0])
		price := parseInt64Safe(a[2])
		if symbol == "" || price <= 0 {
			continue
		}

		ticks = append(ticks, model.Tick{Symbol: symbol, Price: price})
	}
	return ticks
}

func parseIntSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseInt64Safe(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
