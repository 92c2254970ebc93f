package render

import (
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  []string
	}{
		{"", 10, nil},
		{"   ", 10, nil},
		{"one", 10, []string{"one"}},
		{"the quick brown fox jumps", 10, []string{"the quick", "brown fox", "jumps"}},
		{"a  lot   of\tspace", 20, []string{"a lot of space"}},
		{"abcdefghijklmnopqrstuvwxyz end", 10, []string{"abcdefghij", "klmnopqrst", "uvwxyz end"}},
		{"exactly ten", 11, []string{"exactly ten"}},
		{"no width given", 0, []string{"no width given"}},
	}
	for _, tc := range cases {
		got := Wrap(tc.in, tc.width)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Fatalf("Wrap(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
		for _, l := range got {
			if tc.width > 0 && len([]rune(l)) > tc.width {
				t.Fatalf("line %q exceeds width %d", l, tc.width)
			}
		}
	}
}

func TestStartYFormula(t *testing.T) {
	p := TrueTypeParams
	// 3 lines + author: 3*70 + 40 + 50 = 300 → (1350-300)/2 = 525.
	if got := StartY(1350, BlockHeight(3, true, p)); got != 525 {
		t.Fatalf("StartY = %d, want 525", got)
	}
	if got := StartY(1350, BlockHeight(3, false, p)); got != (1350-210)/2 {
		t.Fatalf("StartY without author = %d", got)
	}
	if got := StartY(100, 500); got != 0 {
		t.Fatalf("oversized block should start at 0, got %d", got)
	}
}

func TestCenteringBounds(t *testing.T) {
	const h = 1350
	for _, p := range []Params{TrueTypeParams, FixedParams} {
		maxL := MaxLines(h, true, p)
		if maxL < 10 {
			t.Fatalf("MaxLines = %d, expected room for at least 10 lines", maxL)
		}
		for l := 0; l <= maxL; l++ {
			y := StartY(h, BlockHeight(l, true, p))
			if y < 0 {
				t.Fatalf("lines=%d: y=%d < 0", l, y)
			}
			if y+l*p.LinePitch > h {
				t.Fatalf("lines=%d: y+L*P=%d > %d", l, y+l*p.LinePitch, h)
			}
			if y+BlockHeight(l, true, p) > h {
				t.Fatalf("lines=%d: block overflows canvas", l)
			}
			if again := StartY(h, BlockHeight(l, true, p)); again != y {
				t.Fatalf("StartY not deterministic: %d != %d", again, y)
			}
		}
	}
}

func TestLayoutPositions(t *testing.T) {
	q := FixedFace{Scale: 4}
	a := FixedFace{Scale: 3}
	p := Params{WrapWidth: 10, LinePitch: 60, AuthorGap: 40, AuthorHeight: 40}

	b := Layout("the quick brown fox", "- me", 1080, 1350, q, a, p)
	if len(b.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(b.Lines))
	}
	wantTop := (1350 - (2*60 + 40 + 40)) / 2
	if b.Top != wantTop || b.Lines[0].Y != wantTop || b.Lines[1].Y != wantTop+60 {
		t.Fatalf("unexpected Y positions: top=%d lines=%+v", b.Top, b.Lines)
	}
	// "the quick" = 9 runes * 28px.
	if b.Lines[0].X != (1080-9*28)/2 {
		t.Fatalf("line 0 X = %d", b.Lines[0].X)
	}
	if b.Author == nil || b.Author.Y != wantTop+2*60+40 {
		t.Fatalf("author = %+v", b.Author)
	}
	if b.Author.X != (1080-4*21)/2 {
		t.Fatalf("author X = %d", b.Author.X)
	}
}

func TestLayoutWithoutAuthor(t *testing.T) {
	b := Layout("hello", "  ", 100, 100, FixedFace{}, FixedFace{}, Params{WrapWidth: 10, LinePitch: 20})
	if b.Author != nil {
		t.Fatalf("blank author should be omitted")
	}
	if b.Top != 40 {
		t.Fatalf("top = %d, want 40", b.Top)
	}
}
