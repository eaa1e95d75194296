package sentiment

import "strings"

// Emotion is a coarse label attached to a turn for routing decisions.
type Emotion string

const (
	Neutral    Emotion = "neutral"
	Satisfied  Emotion = "satisfied"
	Frustrated Emotion = "frustrated"
	Angry      Emotion = "angry"
	Anxious    Emotion = "anxious"
)

// Reading is the per-turn sentiment estimate. Valence runs from -1 (hostile)
// to 1 (delighted); arousal from 0 (flat) to 1 (agitated).
type Reading struct {
	Valence float64
	Arousal float64
	Emotion Emotion
}

var negativeWords = map[string]float64{
	"terrible":      0.8,
	"awful":         0.8,
	"worst":         0.9,
	"unacceptable":  0.9,
	"horrible":      0.8,
	"ridiculous":    0.7,
	"useless":       0.7,
	"disgusted":     0.8,
	"furious":       1.0,
	"angry":         0.8,
	"frustrated":    0.6,
	"frustrating":   0.6,
	"annoyed":       0.5,
	"annoying":      0.5,
	"disappointed":  0.5,
	"disappointing": 0.5,
	"upset":         0.5,
	"fed up":        0.7,
	"sick of":       0.7,
	"waste":         0.5,
	"never again":   0.8,
	"rude":          0.6,
	"ignored":       0.5,
	"stranded":      0.6,
	"nightmare":     0.8,
	"no one helps":  0.7,
	"still waiting": 0.5,
}

var positiveWords = map[string]float64{
	"thank":      0.5,
	"thanks":     0.5,
	"great":      0.5,
	"perfect":    0.7,
	"awesome":    0.7,
	"wonderful":  0.7,
	"appreciate": 0.6,
	"helpful":    0.5,
	"excellent":  0.7,
	"love":       0.6,
	"amazing":    0.7,
	"sorted":     0.4,
	"resolved":   0.4,
}

var anxiousWords = []string{
	"worried", "worry", "nervous", "scared", "afraid", "panicking", "panic",
	"what do i do", "please help", "desperate", "urgent",
}

// Analyze estimates valence, arousal and a coarse emotion for one message.
func Analyze(text string) Reading {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Reading{Emotion: Neutral}
	}

	var negative, positive float64
	for word, weight := range negativeWords {
		if strings.Contains(normalized, word) {
			negative += weight
		}
	}
	for word, weight := range positiveWords {
		if strings.Contains(normalized, word) {
			positive += weight
		}
	}

	anxious := 0
	for _, word := range anxiousWords {
		if strings.Contains(normalized, word) {
			anxious++
		}
	}

	valence := positive - negative
	if valence > 1 {
		valence = 1
	}
	if valence < -1 {
		valence = -1
	}

	arousal := 0.0
	arousal += float64(strings.Count(text, "!")) * 0.2
	if isMostlyCaps(text) {
		arousal += 0.3
	}
	arousal += negative * 0.2
	arousal += float64(anxious) * 0.2
	if arousal > 1 {
		arousal = 1
	}

	emotion := Neutral
	switch {
	case valence <= -0.7 && arousal >= 0.4:
		emotion = Angry
	case valence < -0.2:
		emotion = Frustrated
	case anxious > 0 && valence <= 0:
		emotion = Anxious
	case valence >= 0.4:
		emotion = Satisfied
	}

	return Reading{Valence: valence, Arousal: arousal, Emotion: emotion}
}

// Slope reports the direction of a sentiment trend as the average step
// between consecutive readings. Negative means the conversation is souring.
func Slope(trend []float64) float64 {
	if len(trend) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(trend); i++ {
		total += trend[i] - trend[i-1]
	}
	return total / float64(len(trend)-1)
}

// NegativeStreak counts consecutive readings below the threshold, ending
// at the most recent one.
func NegativeStreak(trend []float64, threshold float64) int {
	streak := 0
	for i := len(trend) - 1; i >= 0; i-- {
		if trend[i] >= threshold {
			break
		}
		streak++
	}
	return streak
}

func isMostlyCaps(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			letters++
		case r >= 'A' && r <= 'Z':
			letters++
			upper++
		}
	}
	return letters >= 6 && upper*3 >= letters*2
}
