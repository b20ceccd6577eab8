package core

// Players holds the names read from the White and Black PGN headers
type Players struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// NameFor returns the name of the player moving with the given color
func (p Players) NameFor(c Color) string {
	if c == ColorBlack {
		return p.Black
	}
	return p.White
}

// Has reports whether name played either side of the game
func (p Players) Has(name string) bool {
	return name != "" && (p.White == name || p.Black == name)
}
