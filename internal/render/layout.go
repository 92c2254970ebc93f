package render

import (
	"strings"
)

// Params are the layout constants that go with a face pair.
type Params struct {
	// WrapWidth is the maximum number of characters per line.
	WrapWidth int
	// LinePitch is the vertical distance between quote line tops.
	LinePitch int
	// AuthorGap is the extra space between the last quote line and the author.
	AuthorGap int
	// AuthorHeight is the height reserved for the author line.
	AuthorHeight int
}

// TrueTypeParams go with a 55px quote face and a 40px author face.
var TrueTypeParams = Params{WrapWidth: 25, LinePitch: 70, AuthorGap: 40, AuthorHeight: 50}

// FixedParams go with FixedFace{Scale: 4} / FixedFace{Scale: 3}.
var FixedParams = Params{WrapWidth: 30, LinePitch: 60, AuthorGap: 40, AuthorHeight: 40}

// Line is a positioned line of text.
type Line struct {
	Text string
	X, Y int
}

// Block is a laid out quote plus its author line.
type Block struct {
	Lines  []Line
	Author *Line
	Top    int
	Height int
}

// Wrap splits text into lines of at most width characters, breaking on
// whitespace. Runs of whitespace collapse to one space; words longer than
// width are split into width-sized pieces. Width counts runes, not pixels.
func Wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var (
		lines []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}
	for _, w := range words {
		r := []rune(w)
		if len(r) > width {
			flush()
			for len(r) > width {
				lines = append(lines, string(r[:width]))
				r = r[width:]
			}
			cur = append(cur, r...)
			continue
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, r...)
		case len(cur)+1+len(r) <= width:
			cur = append(cur, ' ')
			cur = append(cur, r...)
		default:
			flush()
			cur = append(cur, r...)
		}
	}
	flush()
	return lines
}

// BlockHeight is lines·pitch, plus the author gap and height when an author
// line is present.
func BlockHeight(lines int, withAuthor bool, p Params) int {
	h := lines * p.LinePitch
	if withAuthor {
		h += p.AuthorGap + p.AuthorHeight
	}
	return h
}

// StartY centers a block vertically: (canvasHeight − blockHeight) / 2.
// Blocks taller than the canvas start at 0.
func StartY(canvasHeight, blockHeight int) int {
	y := (canvasHeight - blockHeight) / 2
	if y < 0 {
		return 0
	}
	return y
}

// CenterX centers a line of the given width horizontally.
func CenterX(canvasWidth, lineWidth int) int {
	return (canvasWidth - lineWidth) / 2
}

// MaxLines is the largest quote line count whose block still fits the canvas.
func MaxLines(canvasHeight int, withAuthor bool, p Params) int {
	if p.LinePitch <= 0 {
		return 0
	}
	avail := canvasHeight - BlockHeight(0, withAuthor, p)
	if avail < 0 {
		return 0
	}
	return avail / p.LinePitch
}

// Layout wraps quote and positions every line on a w×h canvas.
func Layout(quote, author string, w, h int, quoteFace, authorFace Face, p Params) Block {
	texts := Wrap(quote, p.WrapWidth)
	withAuthor := strings.TrimSpace(author) != ""

	height := BlockHeight(len(texts), withAuthor, p)
	top := StartY(h, height)

	b := Block{Lines: make([]Line, 0, len(texts)), Top: top, Height: height}
	y := top
	for _, t := range texts {
		b.Lines = append(b.Lines, Line{Text: t, X: CenterX(w, quoteFace.MeasureText(t)), Y: y})
		y += p.LinePitch
	}
	if withAuthor {
		a := strings.TrimSpace(author)
		b.Author = &Line{Text: a, X: CenterX(w, authorFace.MeasureText(a)), Y: y + p.AuthorGap}
	}
	return b
}
