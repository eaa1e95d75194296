package channel

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceifyStripsSymbolsAndBounds(t *testing.T) {
	long := "First sentence. Second sentence. Third sentence. Fourth sentence that should be cut."
	got := Voiceify(long)
	assert.Equal(t, "First sentence. Second sentence. Third sentence.", got)

	symbols := Voiceify("You get 125 CAD & a voucher | 15% off")
	assert.NotContains(t, symbols, "&")
	assert.NotContains(t, symbols, "|")
	assert.NotContains(t, symbols, "%")
	assert.Contains(t, symbols, "percent")
	assert.True(t, strings.HasSuffix(symbols, "."), "voice output ends with a terminator")
}

func TestSegmentSMSShortMessagePassesThrough(t *testing.T) {
	got := SegmentSMS("Your bag is located and will be delivered within 9 hours.")
	require.Len(t, got, 1)
	assert.NotContains(t, got[0], "(1/")
}

func TestSegmentSMSSplitsAndNumbers(t *testing.T) {
	long := strings.Repeat("every segment stays deliverable ", 20)
	got := SegmentSMS(long)
	require.Greater(t, len(got), 1)

	for i, segment := range got {
		assert.LessOrEqual(t, len(segment), 160, "segment %d too long", i)
		assert.True(t, strings.HasPrefix(segment, fmt.Sprintf("(%d/%d) ", i+1, len(got))))
	}

	// No words lost in the split.
	var rejoined []string
	for i, segment := range got {
		rejoined = append(rejoined, strings.TrimPrefix(segment, fmt.Sprintf("(%d/%d) ", i+1, len(got))))
	}
	assert.Equal(t, strings.Join(strings.Fields(long), " "), strings.Join(rejoined, " "))
}

func TestSpellOutReference(t *testing.T) {
	assert.Equal(t, "S U P dash 1 A 2 B", SpellOutReference("SUP-1a2b"))
}
