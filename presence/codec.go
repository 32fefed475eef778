package presence

import (
	"gameboard-server/core"
	"strconv"
	"strings"
	"time"
)

const (
	fieldSeparator = ","
	lineSeparator  = "\n"
)

// splitLines trims surrounding whitespace of the whole blob and splits it into lines.
func splitLines(data []byte) []string {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	lines := strings.Split(text, lineSeparator)
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

func formatEntry(e core.PresenceEntry) string {
	return e.Nickname + fieldSeparator + e.ParticipantID + fieldSeparator + strconv.FormatInt(e.JoinedAt, 10)
}

// parseStrict accepts only well-formed lines: exactly three fields and an integer timestamp.
func parseStrict(line string) (core.PresenceEntry, bool) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != 3 {
		return core.PresenceEntry{}, false
	}
	joinedAt, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return core.PresenceEntry{}, false
	}
	return core.PresenceEntry{Nickname: fields[0], ParticipantID: fields[1], JoinedAt: joinedAt}, true
}

// parseLoose reads fields positionally. Missing fields are empty and a bad timestamp reads as 0.
func parseLoose(line string) core.PresenceEntry {
	fields := strings.Split(line, fieldSeparator)
	var e core.PresenceEntry
	if len(fields) > 0 {
		e.Nickname = fields[0]
	}
	if len(fields) > 1 {
		e.ParticipantID = fields[1]
	}
	if len(fields) > 2 {
		e.JoinedAt, _ = strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	}
	return e
}

// decodeAll parses every non-blank line loosely, in file order.
func decodeAll(data []byte) []core.PresenceEntry {
	lines := splitLines(data)
	entries := make([]core.PresenceEntry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, parseLoose(line))
	}
	return entries
}

// evictStale keeps the well-formed lines whose entries are at most ttl old.
func evictStale(data []byte, now time.Time, ttl time.Duration) (live []core.PresenceEntry, dropped int) {
	lines := splitLines(data)
	live = make([]core.PresenceEntry, 0, len(lines)+1)
	for _, line := range lines {
		entry, ok := parseStrict(line)
		if !ok || entry.Expired(now, ttl) {
			dropped++
			continue
		}
		live = append(live, entry)
	}
	return live, dropped
}

func encodeAll(entries []core.PresenceEntry) []byte {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = formatEntry(e)
	}
	return []byte(strings.TrimSpace(strings.Join(lines, lineSeparator)))
}
