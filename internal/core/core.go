package core

type Color byte

const (
	ColorWhite Color = 'w'
	ColorBlack Color = 'b'
)

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "w"
	case ColorBlack:
		return "b"
	default:
		return "-"
	}
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// ReferenceColor is the side every evaluation is expressed for
const ReferenceColor = ColorWhite

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	switch string(b) {
	case "w":
		*c = ColorWhite
	case "b":
		*c = ColorBlack
	default:
		*c = 0
	}
	return nil
}
