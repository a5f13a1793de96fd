package ics

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

const (
	beginEvent = "BEGIN:VEVENT"
	endEvent   = "END:VEVENT"
	descField  = "DESCRIPTION:"

	noteTimeFormat = "02/01/2006 15:04:05"
)

// ScrapNote is the provenance note written into the cached feed when a
// section is downloaded from the portal.
func ScrapNote(t time.Time) string {
	return fmt.Sprintf("(Scrap le %s)", t.Format(noteTimeFormat))
}

// ImportNote is the provenance note applied transiently when a cached feed
// is served to a client.
func ImportNote(t time.Time) string {
	return fmt.Sprintf("(Importé le %s)", t.Format(noteTimeFormat))
}

// Annotate inserts note into the DESCRIPTION of every VEVENT in content and
// returns the result with CRLF line endings. Content without any VEVENT is
// returned unchanged. Annotating twice with the same note is a no-op for
// already annotated events.
//
// Annotate never fails: malformed input, undecodable bytes or a truncated
// event all degrade to returning the affected bytes untouched, so annotation
// can never be the reason a feed is lost.
func Annotate(content []byte, note string) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("annotation failed, keeping content unchanged: %v", r)
			out = content
		}
	}()

	text := decode(content)
	if !strings.Contains(text, beginEvent) {
		return content
	}

	lines := strings.Split(normalizeNewlines(text), "\n")
	return []byte(strings.Join(annotateLines(lines, note), "\r\n"))
}

// annotateLines scans for BEGIN:VEVENT / END:VEVENT pairs and rewrites each
// complete event. Lines outside events, and any tail following a BEGIN with
// no matching END, pass through untouched.
func annotateLines(lines []string, note string) []string {
	out := make([]string, 0, len(lines)+4)
	for i := 0; i < len(lines); i++ {
		if lines[i] != beginEvent {
			out = append(out, lines[i])
			continue
		}
		j := i + 1
		for j < len(lines) && lines[j] != endEvent {
			j++
		}
		if j == len(lines) {
			// Truncated event: no closing marker to anchor a
			// description on, so leave the tail as-is.
			out = append(out, lines[i:]...)
			break
		}
		out = append(out, annotateEvent(lines[i:j+1], note)...)
		i = j
	}
	return out
}

// annotateEvent handles one event, begin and end markers included. The three
// cases are ordered: already annotated, existing description, no description.
func annotateEvent(event []string, note string) []string {
	if hasNote(event, note) {
		return event
	}
	if k := descriptionIndex(event); k >= 0 {
		return appendToDescription(event, k, note)
	}
	return insertDescription(event, note)
}

func hasNote(event []string, note string) bool {
	for _, line := range event {
		if strings.Contains(line, note) {
			return true
		}
	}
	return false
}

func descriptionIndex(event []string) int {
	for i, line := range event {
		if strings.HasPrefix(line, descField) {
			return i
		}
	}
	return -1
}

// appendToDescription extends the existing field value with the note, joined
// by the literal \n escape that ICS description fields use for line breaks.
func appendToDescription(event []string, k int, note string) []string {
	annotated := make([]string, len(event))
	copy(annotated, event)
	annotated[k] = annotated[k] + `\n` + note
	return annotated
}

// insertDescription adds a new DESCRIPTION line right before END:VEVENT.
func insertDescription(event []string, note string) []string {
	annotated := make([]string, 0, len(event)+1)
	annotated = append(annotated, event[:len(event)-1]...)
	annotated = append(annotated, descField+note, event[len(event)-1])
	return annotated
}

// decode interprets content as UTF-8, falling back to a Latin-1 style
// byte-for-rune decode for the legacy encodings the portal sometimes emits.
func decode(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return string(runes)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
