package core

// BlunderRecord describes one move that lost a queen and swung the evaluation
// against the mover. Field order matches the display order.
type BlunderRecord struct {
	Ply            int    `json:"ply"`
	MoveNumber     int    `json:"moveNumber"`
	Player         string `json:"player"`
	Color          Color  `json:"color"`
	Move           string `json:"move"`
	PositionBefore string `json:"positionBefore"`
	PositionAfter  string `json:"positionAfter"`
	EvalBefore     int    `json:"evalBefore"`
	EvalAfter      int    `json:"evalAfter"`
	EvalChange     int    `json:"evalChange"`
}
