package gui

import (
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Terminal safe color palette is available here
// https://upload.wikimedia.org/wikipedia/commons/1/15/Xterm_256color_chart.svg

// Theme is used for dynamically coloring the UI
type Theme struct {
	Name        string
	SquareDark  tcell.Color
	SquareLight tcell.Color
	SquareHigh  tcell.Color
	SquareLast  tcell.Color
	SquareFight tcell.Color
	White       tcell.Color
	Black       tcell.Color
	Rank        tcell.Color
	File        tcell.Color
	Weather     tcell.Color
	Terrain     tcell.Color
	Msg         tcell.Color
}

// ThemeHex is the hex form of a Theme, as found in config files
type ThemeHex struct {
	Name        string `json:"name"`
	SquareDark  string `json:"squareDark"`
	SquareLight string `json:"squareLight"`
	SquareHigh  string `json:"squareHigh"`
	SquareLast  string `json:"squareLast"`
	SquareFight string `json:"squareFight"`
	White       string `json:"white"`
	Black       string `json:"black"`
	Rank        string `json:"rank"`
	File        string `json:"file"`
	Weather     string `json:"weather"`
	Terrain     string `json:"terrain"`
	Msg         string `json:"msg"`
}

// fmtHex returns a one character hex for the ColorDefault so it survives a
// round trip instead of being read back as black
func fmtHex(v int32) string {
	if v == -1 {
		return "#0"
	}
	return fmt.Sprintf("#%06x", v)
}

// Hex converts a Theme to a ThemeHex
func (t Theme) Hex() ThemeHex {
	return ThemeHex{
		Name:        t.Name,
		SquareDark:  fmtHex(t.SquareDark.Hex()),
		SquareLight: fmtHex(t.SquareLight.Hex()),
		SquareHigh:  fmtHex(t.SquareHigh.Hex()),
		SquareLast:  fmtHex(t.SquareLast.Hex()),
		SquareFight: fmtHex(t.SquareFight.Hex()),
		White:       fmtHex(t.White.Hex()),
		Black:       fmtHex(t.Black.Hex()),
		Rank:        fmtHex(t.Rank.Hex()),
		File:        fmtHex(t.File.Hex()),
		Weather:     fmtHex(t.Weather.Hex()),
		Terrain:     fmtHex(t.Terrain.Hex()),
		Msg:         fmtHex(t.Msg.Hex()),
	}
}

// Theme converts a ThemeHex to a Theme
func (t ThemeHex) Theme() Theme {
	return Theme{
		Name:        t.Name,
		SquareDark:  tcell.GetColor(t.SquareDark),
		SquareLight: tcell.GetColor(t.SquareLight),
		SquareHigh:  tcell.GetColor(t.SquareHigh),
		SquareLast:  tcell.GetColor(t.SquareLast),
		SquareFight: tcell.GetColor(t.SquareFight),
		White:       tcell.GetColor(t.White),
		Black:       tcell.GetColor(t.Black),
		Rank:        tcell.GetColor(t.Rank),
		File:        tcell.GetColor(t.File),
		Weather:     tcell.GetColor(t.Weather),
		Terrain:     tcell.GetColor(t.Terrain),
		Msg:         tcell.GetColor(t.Msg),
	}
}

var ErrNoTheme = errors.New("theme: no theme found")

// Themes are the built-in themes
var Themes = []Theme{ThemeBasic, ThemeNight}

// ThemeByName finds a built-in theme
func ThemeByName(want string) (Theme, error) {
	for _, t := range Themes {
		if t.Name == want {
			return t, nil
		}
	}
	return Theme{}, ErrNoTheme
}

// ThemeBasic is the default theme
var ThemeBasic = Theme{
	Name:        "basic",
	SquareDark:  tcell.Color188,
	SquareLight: tcell.Color230,
	SquareHigh:  tcell.Color226,
	SquareLast:  tcell.Color223,
	SquareFight: tcell.Color218,
	White:       tcell.Color232,
	Black:       tcell.Color232,
	Rank:        tcell.Color247,
	File:        tcell.Color247,
	Weather:     tcell.Color166,
	Terrain:     tcell.Color28,
	Msg:         tcell.Color160,
}

var ThemeNight = Theme{
	Name:        "night",
	SquareDark:  tcell.Color24,
	SquareLight: tcell.Color67,
	SquareHigh:  tcell.Color136,
	SquareLast:  tcell.Color101,
	SquareFight: tcell.Color131,
	White:       tcell.Color255,
	Black:       tcell.Color232,
	Rank:        tcell.Color244,
	File:        tcell.Color244,
	Weather:     tcell.Color214,
	Terrain:     tcell.Color120,
	Msg:         tcell.Color203,
}
