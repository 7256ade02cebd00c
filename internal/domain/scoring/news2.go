package scoring

// Score thresholds for triage classification.
const (
	RedScore    = 7
	YellowScore = 5
	MinSBP      = 90
	MinSpO2     = 90
)

// Score computes the NEWS2-style early-warning score for a set of vitals.
// Inputs outside clinical ranges are not rejected; they score at the
// boundary tier.
func Score(v Vitals) int {
	return Explain(v).Total
}

// Explain returns the sub-score contributed by each vital sign.
func Explain(v Vitals) Breakdown {
	b := Breakdown{
		HR:   heartRatePoints(v.HR),
		SBP:  systolicPoints(v.SBP),
		RR:   respiratoryPoints(v.RR),
		SpO2: saturationPoints(v.SpO2),
		Temp: temperaturePoints(v.Temp),
	}
	b.Total = b.HR + b.SBP + b.RR + b.SpO2 + b.Temp
	return b
}

// Classify derives the triage colour from a score and the absolute
// haemodynamic thresholds.
func Classify(score, sbp, spo2 int) Color {
	switch {
	case score >= RedScore || sbp < MinSBP || spo2 < MinSpO2:
		return Red
	case score >= YellowScore:
		return Yellow
	default:
		return Green
	}
}

// Assess scores the vitals and classifies the result in one step.
func Assess(v Vitals) (int, Color) {
	s := Score(v)
	return s, Classify(s, v.SBP, v.SpO2)
}

func heartRatePoints(hr int) int {
	switch {
	case hr <= 40 || hr >= 131:
		return 3
	case hr >= 111 || hr <= 50:
		return 1
	}
	return 0
}

// systolicPoints scores 101-219 as 0. The upper band >=220 is scored 3.
func systolicPoints(sbp int) int {
	switch {
	case sbp <= 90:
		return 3
	case sbp <= 100:
		return 2
	case sbp >= 220:
		return 3
	}
	return 0
}

func respiratoryPoints(rr int) int {
	switch {
	case rr <= 8 || rr >= 25:
		return 3
	case rr >= 21:
		return 1
	}
	return 0
}

func saturationPoints(spo2 int) int {
	switch {
	case spo2 <= 91:
		return 3
	case spo2 <= 93:
		return 2
	case spo2 <= 95:
		return 1
	}
	return 0
}

func temperaturePoints(temp float64) int {
	switch {
	case temp <= 35.0:
		return 3
	case temp >= 39.1:
		return 2
	case temp >= 38.1:
		return 1
	}
	return 0
}
