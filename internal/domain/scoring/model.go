package scoring

// Color is the triage urgency tag derived from the early-warning score.
type Color string

const (
	// Red marks critical encounters requiring immediate resuscitation.
	Red Color = "RED"

	// Yellow marks urgent encounters requiring assessment and monitoring.
	Yellow Color = "YELLOW"

	// Green marks stable encounters.
	Green Color = "GREEN"
)

// Colors lists the triage colours in urgency order.
var Colors = []Color{Red, Yellow, Green}

// Valid reports whether c is one of the three triage colours.
func (c Color) Valid() bool {
	return c == Red || c == Yellow || c == Green
}

// Vitals holds the five vital signs the early-warning score is computed from.
type Vitals struct {
	HR   int     `json:"hr"`
	SBP  int     `json:"sbp"`
	RR   int     `json:"rr"`
	SpO2 int     `json:"spo2"`
	Temp float64 `json:"temp"`
}

// Breakdown is the per-parameter contribution to the total score.
type Breakdown struct {
	HR    int `json:"hr"`
	SBP   int `json:"sbp"`
	RR    int `json:"rr"`
	SpO2  int `json:"spo2"`
	Temp  int `json:"temp"`
	Total int `json:"total"`
}
