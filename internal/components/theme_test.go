package components

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	assert.Equal(t, "#3b82f6", theme.Palette.Primary.Base.Light)
	assert.Equal(t, "#111827", theme.Palette.Surface.OnBase.Light)

	assert.Equal(t, lipgloss.RoundedBorder(), theme.Borders.Rounded)
	assert.Equal(t, lipgloss.NormalBorder(), theme.Borders.Normal)

	assert.Equal(t, 4, theme.Spacing.Padding[SpacingSizeMedium])
	assert.Equal(t, 3, theme.Spacing.Margin[SpacingSizeSmall])

	assert.True(t, theme.Typography.Title.GetBold(), "title typography should be bold")
}

func TestSetGetTheme(t *testing.T) {
	original := GetTheme()

	custom := DefaultTheme()
	custom.Palette.Primary.Base = lipgloss.AdaptiveColor{Light: "#0000ff", Dark: "#1e3a8a"}
	SetTheme(custom)

	active := GetTheme()
	assert.Equal(t, "#0000ff", active.Palette.Primary.Base.Light)

	SetTheme(original)
}

func TestSpacingHelpers(t *testing.T) {
	SetTheme(DefaultTheme())
	assert.Equal(t, 4, PaddingValue(SpacingSizeMedium))
}

func TestTypographyStyle(t *testing.T) {
	body := TypographyStyle(TypographyVariantBody)
	title := TypographyStyle(TypographyVariantTitle)
	assert.True(t, title.GetBold(), "title typography should be bold")
	assert.False(t, body.GetBold(), "body typography should not be bold")
}

func TestTypographyStyleUnknownVariantFallsBackToBase(t *testing.T) {
	assert.Equal(t, GetTheme().Typography.Base, TypographyStyle(TypographyVariant(99)))
}
