package parser

import (
	"context"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

func TestPlausibleTextRequiresMixedCaseAndMultipleWords(t *testing.T) {
	require.True(t, plausibleText("The Kitchen Safety Manual covers storage"))
	require.False(t, plausibleText("alllowercaseandonlyoneword"))
	require.False(t, plausibleText("####################"))
	require.False(t, plausibleText("short"))
}

func TestScanASCIIRunsSkipsShortAndBinaryNoise(t *testing.T) {
	data := append([]byte{0x00, 0x01, 0x02}, []byte("This is a long enough printable run of text")...)
	data = append(data, []byte{0x00, 0x00}...)

	runs := scanASCIIRuns(data)

	require.Len(t, runs, 1)
	require.Contains(t, runs[0], "printable run of text")
}

func TestScanUTF16RunsDecodesPlausibleText(t *testing.T) {
	text := "Standard Operating Procedures for the kitchen"
	units := utf16.Encode([]rune(text))
	data := make([]byte, len(units)*2)
	for i, u := range units {
		data[i*2] = byte(u)
		data[i*2+1] = byte(u >> 8)
	}

	runs := scanUTF16Runs(data)

	require.Len(t, runs, 1)
	require.Equal(t, text, runs[0])
}

func TestLegacyExtractorReturnsErrorWhenNothingSalvageable(t *testing.T) {
	extractor := LegacyExtractor{}
	_, err := extractor.Extract(context.Background(), "doc", []byte{0x00, 0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestLegacyExtractorSalvagesPlausibleRun(t *testing.T) {
	extractor := LegacyExtractor{}
	payload := []byte{0xD0, 0xCF, 0x11, 0xE0}
	payload = append(payload, []byte(strings.Repeat("Kitchen Safety Manual covers proper Food storage ", 2))...)

	blocks, err := extractor.Extract(context.Background(), "doc", payload)

	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	require.Contains(t, blocks[0].Content, "Kitchen Safety Manual")
}
