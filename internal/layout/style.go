package layout

// FontStyle uses the fpdf style letters.
type FontStyle string

const (
	Regular    FontStyle = ""
	Bold       FontStyle = "B"
	Italic     FontStyle = "I"
	BoldItalic FontStyle = "BI"
)

// fontFamily is a PDF core font, so no font files are needed at runtime.
const fontFamily = "Helvetica"

const lineSpacing = 1.35

// Font is a Helvetica face at a point size.
type Font struct {
	Style FontStyle
	Size  float64
}

// LineHeight is the vertical advance of one wrapped line, in millimetres.
func (f Font) LineHeight() float64 {
	return f.Size * PtToMm * lineSpacing
}

type Color struct {
	R, G, B int
}

var (
	Black     = Color{0, 0, 0}
	White     = Color{255, 255, 255}
	DarkGray  = Color{64, 64, 64}
	MidGray   = Color{128, 128, 128}
	LightGray = Color{235, 235, 235}
	Teal      = Color{0, 121, 107}
	Navy      = Color{26, 54, 93}
	Amber     = Color{230, 145, 30}
	Crimson   = Color{192, 40, 45}
	Green     = Color{46, 139, 87}
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// alignX returns the X of a run of width w placed inside [x, x+avail].
func alignX(a Align, x, avail, w float64) float64 {
	switch a {
	case AlignCenter:
		return x + (avail-w)/2
	case AlignRight:
		return x + avail - w
	default:
		return x
	}
}

// TextStyle selects a font and colour from the theme.
type TextStyle int

const (
	StyleBody TextStyle = iota
	StyleStrong
	StyleLabel
	StyleTitle
	StyleSubtitle
	StyleNote
)

// Theme holds every visual constant used by the block renderers.
type Theme struct {
	Body     Font
	Strong   Font
	Label    Font
	Title    Font
	Subtitle Font
	Note     Font
	Header   Font
	Cell     Font
	Footer   Font
	Badge    Font
	Caption  Font

	Text        Color
	Muted       Color
	Accent      Color
	HeaderFill  Color
	HeaderText  Color
	StripeFill  Color
	Border      Color
	CheckFill   Color
	FooterColor Color

	BlockGap    float64
	SectionGap  float64
	BandPadding float64
	CellPadding float64
	BorderWidth float64

	CheckboxSize   float64
	CheckboxGap    float64
	CheckboxRowGap float64
	ColumnGap      float64

	BadgeHeight   float64
	BadgeMinWidth float64
	BadgeRadius   float64
	BadgePadding  float64

	SignatureHeight float64
	SignatureGap    float64

	FieldLabelWidth float64
}

// DefaultTheme is the house style of the pharmacy documents.
func DefaultTheme() Theme {
	return Theme{
		Body:     Font{Regular, 9.5},
		Strong:   Font{Bold, 9.5},
		Label:    Font{Bold, 9},
		Title:    Font{Bold, 16},
		Subtitle: Font{Regular, 11},
		Note:     Font{Italic, 9},
		Header:   Font{Bold, 8.5},
		Cell:     Font{Regular, 8.5},
		Footer:   Font{Regular, 7.5},
		Badge:    Font{Bold, 12},
		Caption:  Font{Regular, 8},

		Text:        DarkGray,
		Muted:       MidGray,
		Accent:      Teal,
		HeaderFill:  Navy,
		HeaderText:  White,
		StripeFill:  Color{246, 248, 250},
		Border:      Color{170, 170, 170},
		CheckFill:   Teal,
		FooterColor: MidGray,

		BlockGap:    3,
		SectionGap:  5,
		BandPadding: 1.8,
		CellPadding: 1.5,
		BorderWidth: 0.2,

		CheckboxSize:   3.5,
		CheckboxGap:    2,
		CheckboxRowGap: 1.5,
		ColumnGap:      6,

		BadgeHeight:   10,
		BadgeMinWidth: 30,
		BadgeRadius:   2.5,
		BadgePadding:  6,

		SignatureHeight: 32,
		SignatureGap:    5,

		FieldLabelWidth: 55,
	}
}

func (t Theme) textStyle(s TextStyle) (Font, Color) {
	switch s {
	case StyleStrong:
		return t.Strong, t.Text
	case StyleLabel:
		return t.Label, t.Text
	case StyleTitle:
		return t.Title, t.HeaderFill
	case StyleSubtitle:
		return t.Subtitle, t.Muted
	case StyleNote:
		return t.Note, t.Muted
	default:
		return t.Body, t.Text
	}
}
