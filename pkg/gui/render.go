// Package gui draws the hybrid board into tview tables.
package gui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"
	"github.com/rivo/tview"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/qnkhuat/chessmon/pkg/weather"
)

const (
	numOfSquaresInRow = 8
	// The table has one label column on the left and one label row below.
	numRows = numOfSquaresInRow + 1
)

var titler = cases.Title(language.English)

// SquareView is what the client knows about one square.
type SquareView struct {
	Piece        chess.Piece
	Species      string
	Level        int
	Tier         string
	Weather      string
	WeatherTurns int
	Terrain      string
	TerrainTurns int
}

// BoardView is everything DrawBoard needs.
type BoardView struct {
	Squares  map[chess.Square]SquareView
	Selected map[chess.Square]bool
	// Fight is the contested square of a running battle, or NoSquare.
	Fight    chess.Square
	LastFrom chess.Square
	LastTo   chess.Square
	// Flip draws the board from black's side.
	Flip bool
}

var weatherGlyphs = map[weather.Kind]rune{
	weather.SunnyDay:        '☀',
	weather.RainDance:       '☂',
	weather.Sandstorm:       '≈',
	weather.Snow:            '❄',
	weather.ElectricTerrain: 'ϟ',
	weather.GrassyTerrain:   '♣',
	weather.MistyTerrain:    '~',
	weather.PsychicTerrain:  '✦',
}

// Glyph is the one-rune mark of a modifier ID, or a space.
func Glyph(id string) rune {
	k, ok := weather.ParseKind(id)
	if !ok {
		return ' '
	}
	return weatherGlyphs[k]
}

// Headline turns identifiers like "KING_CAPTURED" into "King Captured".
func Headline(s string) string {
	return titler.String(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
}

// ModifierName is the display name of a modifier ID.
func ModifierName(id string) string {
	if k, ok := weather.ParseKind(id); ok {
		return k.Name()
	}
	return Headline(id)
}

// CellSquare maps a table cell to the square drawn there. ok is false for
// the label cells.
func CellSquare(row, col int, flip bool) (chess.Square, bool) {
	if row < 0 || row >= numOfSquaresInRow || col < 1 || col > numOfSquaresInRow {
		return chess.NoSquare, false
	}
	rank, file := numOfSquaresInRow-1-row, col-1
	if flip {
		rank, file = row, numOfSquaresInRow-col
	}
	return chess.Square(rank*8 + file), true
}

// squareBg returns the theme's color corresponding to the square
func squareBg(sq chess.Square, v BoardView, t Theme) tcell.Color {
	switch {
	case v.Selected[sq]:
		return t.SquareHigh
	case sq == v.Fight:
		return t.SquareFight
	case sq == v.LastFrom || sq == v.LastTo:
		return t.SquareLast
	case (int(sq.File())+int(sq.Rank()))%2 == 0:
		return t.SquareDark
	default:
		return t.SquareLight
	}
}

// cellText is the piece followed by its weather and terrain marks.
func cellText(sv SquareView) string {
	p := " "
	if sv.Piece != chess.NoPiece {
		p = sv.Piece.String()
	}
	return fmt.Sprintf("%s%c%c", p, Glyph(sv.Weather), Glyph(sv.Terrain))
}

// DrawBoard fills table with the board. Ranks run down the left column and
// files along the bottom row.
func DrawBoard(table *tview.Table, v BoardView, t Theme) {
	for row := 0; row < numRows; row++ {
		for col := 0; col < numRows; col++ {
			table.SetCell(row, col, boardCell(row, col, v, t))
		}
	}
}

func boardCell(row, col int, v BoardView, t Theme) *tview.TableCell {
	if sq, ok := CellSquare(row, col, v.Flip); ok {
		sv := v.Squares[sq]
		fg := t.White
		if sv.Piece != chess.NoPiece && sv.Piece.Color() == chess.Black {
			fg = t.Black
		}
		return tview.NewTableCell(cellText(sv)).
			SetAlign(tview.AlignCenter).
			SetTextColor(fg).
			SetBackgroundColor(squareBg(sq, v, t))
	}
	label := ""
	color := t.Rank
	switch {
	case col == 0 && row < numOfSquaresInRow:
		sq, _ := CellSquare(row, 1, v.Flip)
		label = sq.Rank().String()
	case row == numOfSquaresInRow && col > 0:
		sq, _ := CellSquare(0, col, v.Flip)
		label = sq.File().String()
		color = t.File
	}
	return tview.NewTableCell(label).
		SetAlign(tview.AlignCenter).
		SetTextColor(color).
		SetSelectable(false)
}

// DescribeSquare is the one-line summary shown for the square under the
// cursor.
func DescribeSquare(sq chess.Square, sv SquareView) string {
	parts := []string{sq.String()}
	if sv.Piece != chess.NoPiece {
		parts = append(parts, fmt.Sprintf("%s %s L%d (%s)", sv.Piece, sv.Species, sv.Level, Headline(sv.Tier)))
	}
	if sv.Weather != "" {
		parts = append(parts, fmt.Sprintf("%s %d", ModifierName(sv.Weather), sv.WeatherTurns))
	}
	if sv.Terrain != "" {
		parts = append(parts, fmt.Sprintf("%s %d", ModifierName(sv.Terrain), sv.TerrainTurns))
	}
	return strings.Join(parts, " | ")
}
