package main

import (
	"io"

	"github.com/dnesting/avida/world"
)

// Box-drawing runes for the grid border.
const (
	topLeftRune     = '┌'
	topRune         = '─'
	topRightRune    = '┐'
	rightRune       = '│'
	bottomRightRune = '┘'
	bottomRune      = '─'
	bottomLeftRune  = '└'
	leftRune        = '│'
	emptyRune       = ' '
)

func writeRune(w io.Writer, r rune) {
	io.WriteString(w, string(r))
}

// runeForCell picks a glyph summarizing one occupied cell: a digit 0-9
// roughly tracking log2(merit), so a denser lineage stands out visually
// without needing color support in the terminal.
func runeForCell(cv world.CellView) rune {
	m := cv.Merit
	level := 0
	for m >= 2 && level < 9 {
		m /= 2
		level++
	}
	return rune('0' + level)
}

// printWorld renders w's grid to out inside a box-drawn border, one rune
// per cell, blank for empty cells.
func printWorld(out io.Writer, w *world.World) {
	width, height := w.Dimensions()

	writeRune(out, topLeftRune)
	for x := 0; x < width; x++ {
		writeRune(out, topRune)
	}
	writeRune(out, topRightRune)
	writeRune(out, '\n')

	for y := 0; y < height; y++ {
		writeRune(out, leftRune)
		for x := 0; x < width; x++ {
			cv, ok := w.At(x, y)
			if !ok {
				writeRune(out, emptyRune)
				continue
			}
			writeRune(out, runeForCell(cv))
		}
		writeRune(out, rightRune)
		writeRune(out, '\n')
	}

	writeRune(out, bottomLeftRune)
	for x := 0; x < width; x++ {
		writeRune(out, bottomRune)
	}
	writeRune(out, bottomRightRune)
	writeRune(out, '\n')
}
