package question

import (
	"testing"

	"convtrainer/internal/models"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsCorrect(t *testing.T) {
	convs := []models.Conv{
		models.ConvBinaryStandalone,
		models.ConvHexStandalone,
		models.ConvIPv4Full,
		models.ConvIPv6Hextet,
	}
	for _, conv := range convs {
		for i := 0; i < 50; i++ {
			g := Generate(conv, models.ModeClassic)
			require.True(t, IsCorrect(g.Answer, g.Answer, conv), "conv=%s value=%s answer=%s", conv, g.Value, g.Answer)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"FF", "0xff", " 2 ", "00ff", "11111111", "1.2.3.4"}
	for _, conv := range []models.Conv{models.ConvHexStandalone, models.ConvBinaryStandalone, models.ConvIPv4Full} {
		for _, in := range inputs {
			once := Normalize(in, conv)
			twice := Normalize(once, conv)
			require.Equal(t, once, twice, "conv=%s input=%q", conv, in)
		}
	}
}

func TestNibbleSprintWidth(t *testing.T) {
	for i := 0; i < 20; i++ {
		g := Generate(models.ConvBinaryStandalone, models.ModeNibbleSprint)
		require.LessOrEqual(t, len(g.Answer), 4)
	}
}

func TestNumpadAlias(t *testing.T) {
	require.Equal(t, Normalize("0", models.ConvBinaryStandalone), Normalize("2", models.ConvBinaryStandalone))
}

func TestIsCorrectRejectsGarbage(t *testing.T) {
	require.False(t, IsCorrect("not-a-number", "11110000", models.ConvBinaryStandalone))
}
