package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// mdxTheme keeps the default theme with a slate-blue accent and a
// slightly smaller body font so long paths fit the tree.
type mdxTheme struct{}

func (t *mdxTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameButton:
		return color.NRGBA{R: 0x3B, G: 0x5B, B: 0xA9, A: 0xFF}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x2E, G: 0x9D, B: 0x5B, A: 0xFF}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xD9, G: 0x3F, B: 0x3F, A: 0xFF}
	case theme.ColorNameWarning:
		return color.NRGBA{R: 0xE8, G: 0x8B, B: 0x1A, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *mdxTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *mdxTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *mdxTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 13
	case theme.SizeNameHeadingText:
		return 18
	default:
		return theme.DefaultTheme().Size(name)
	}
}
