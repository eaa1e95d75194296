package channel

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// smsSegmentSize is the per-segment budget, leaving room for the
	// "(n/m) " prefix inside the classic 160-character limit.
	smsSegmentSize = 153

	// voiceMaxSentences bounds how much is read out in one go.
	voiceMaxSentences = 3
)

// Voiceify rewrites a reply for text-to-speech: no symbols that read
// badly, short sentences, and at most a few of them.
func Voiceify(text string) string {
	clean := strings.NewReplacer(
		"$", "",
		"%", " percent",
		"&", " and ",
		"*", "",
		"#", "",
		"_", " ",
		"|", ", ",
		"->", " to ",
		"–", ", ",
	).Replace(text)

	clean = collapseSpaces(clean)

	sentences := splitSentences(clean)
	if len(sentences) > voiceMaxSentences {
		sentences = sentences[:voiceMaxSentences]
	}

	out := strings.Join(sentences, " ")
	out = strings.TrimSpace(out)
	if out != "" && !strings.ContainsAny(out[len(out)-1:], ".!?") {
		out += "."
	}
	return out
}

// SegmentSMS splits a message into numbered segments that each fit a
// single SMS. A message that fits in one segment gets no numbering.
func SegmentSMS(text string) []string {
	text = collapseSpaces(text)
	if text == "" {
		return nil
	}
	if len(text) <= 160 {
		return []string{text}
	}

	var segments []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > smsSegmentSize {
			segments = append(segments, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}

	total := len(segments)
	for i := range segments {
		segments[i] = fmt.Sprintf("(%d/%d) %s", i+1, total, segments[i])
	}
	return segments
}

// SpellOutReference reads a SUP reference character by character so it
// survives a phone line.
func SpellOutReference(ref string) string {
	var parts []string
	for _, r := range strings.ToUpper(ref) {
		switch {
		case r == '-':
			parts = append(parts, "dash")
		case unicode.IsDigit(r):
			parts = append(parts, string(r))
		default:
			parts = append(parts, string(r))
		}
	}
	return strings.Join(parts, " ")
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
