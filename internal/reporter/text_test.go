package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextSummary(t *testing.T) {
	summary := &Summary{
		Threshold: 5,
		Sheets: []SheetSummary{
			{Sheet: "Finance", Rows: 20, Flagged: []FlaggedRow{
				{Application: "App1", Parameter: "Loc", V2: "100", V3: "120", Variation: 20},
			}},
			{Sheet: "default", Rows: 10},
		},
	}

	var out bytes.Buffer
	require.NoError(t, WriteText(summary, &out))
	text := out.String()

	assert.Contains(t, text, "Variation Summary")
	assert.Contains(t, text, "Threshold: 5%")
	assert.Contains(t, text, "Flagged rows: 1")
	assert.Contains(t, text, "Finance | App1 | Loc | V2=100 V3=120 variation=20.00%")
	assert.NotContains(t, text, "\x1b[")
}

func TestWriteTextSummaryNoFlags(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteText(&Summary{Threshold: 2.5}, &out))
	assert.Contains(t, out.String(), "Threshold: 2.5%")
	assert.Contains(t, out.String(), "No report sheets found.")
	assert.NotContains(t, out.String(), "Flagged Rows")
}

func TestWriteTextErrors(t *testing.T) {
	require.Error(t, WriteText(nil, &bytes.Buffer{}))
	require.Error(t, WriteText(&Summary{}, nil))
}

func TestRenderTextSummaryANSI(t *testing.T) {
	text := renderTextSummary(&Summary{}, true)
	assert.True(t, strings.HasPrefix(text, textANSIBold+"Variation Summary"+textANSIReset))
}

func TestTruncateTextValue(t *testing.T) {
	assert.Equal(t, "abc", truncateTextValue("abc", 5))
	assert.Equal(t, "ab...", truncateTextValue("abcdefgh", 5))
	assert.Equal(t, "ab", truncateTextValue("abcdefgh", 2))
	assert.Equal(t, "abc", truncateTextValue("abc", 0))
	assert.Equal(t, "-", textValue(" "))
}

func TestFlaggedCountNil(t *testing.T) {
	var s *Summary
	assert.Equal(t, 0, s.FlaggedCount())
}
