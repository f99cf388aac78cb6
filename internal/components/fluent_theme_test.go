package components

import (
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestStyleApplier(t *testing.T) {
	style := Style(
		lipgloss.NewStyle(),
		Background(PalettePrimary),
		Padding(SpacingSizeMedium),
		Border(BorderVariantRounded),
	)

	assert.NotEmpty(t, style.GetBackground(), "expected background to be set")
	assert.True(t, style.GetPaddingLeft() > 0, "expected padding to be applied")
}

func TestPaletteSlots(t *testing.T) {
	palette := GetTheme().Palette
	assert.NotEmpty(t, palette.Primary.Base.Light, "primary light tone should be set")
	assert.NotEmpty(t, palette.Secondary.Base.Dark, "secondary dark tone should be set")
}

func TestCardBaseStyle(t *testing.T) {
	cardStyle := Style(lipgloss.NewStyle(), CardBaseStyle()...)
	assert.NotEmpty(t, cardStyle.GetBackground(), "card style should set background")
	assert.True(t, cardStyle.GetPaddingLeft() > 0, "card style should apply padding")
}

func TestConcurrentThemeAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			palette := GetTheme().Palette
			assert.NotEmpty(t, palette.Primary.Base.Light)
		}()
	}
	wg.Wait()
}

func TestFluentModifierChain(t *testing.T) {
	style := Style(
		lipgloss.NewStyle(),
		Background(PaletteSuccess),
		Border(BorderVariantRounded),
		Padding(SpacingSizeLarge),
		Typography(TypographyVariantTitle),
	)

	assert.NotEmpty(t, style.GetBackground(), "chained modifiers should set background")
	assert.True(t, style.GetPaddingLeft() > 0, "chained modifiers should set padding")
}
