package protocol

// Severity tiers a diagnosis carries into vital-sign generation.
const (
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityVariable = "VARIABLE"
)

// Chief complaint categories.
const (
	Cardiac     = "Cardiac"
	Trauma      = "Trauma"
	Maternal    = "Maternal"
	Stroke      = "Stroke"
	Respiratory = "Respiratory"
	Sepsis      = "Sepsis"
)

// Complaints lists the chief complaint categories.
var Complaints = []string{Trauma, Maternal, Cardiac, Stroke, Respiratory, Sepsis}

// Diagnosis is an ICD-10 compatible provisional diagnosis.
type Diagnosis struct {
	Code      string `json:"code"`
	Diagnosis string `json:"diagnosis"`
	Severity  string `json:"severity"`
}

var icdDiagnoses = map[string][]Diagnosis{
	Cardiac: {
		{Code: "I21.9", Diagnosis: "Acute myocardial infarction, unspecified", Severity: SeverityHigh},
		{Code: "I50.9", Diagnosis: "Heart failure, unspecified", Severity: SeverityHigh},
		{Code: "I48.91", Diagnosis: "Unspecified atrial fibrillation", Severity: SeverityMedium},
		{Code: "I10", Diagnosis: "Essential hypertension", Severity: SeverityMedium},
	},
	Trauma: {
		{Code: "S06.9", Diagnosis: "Intracranial injury, unspecified", Severity: SeverityHigh},
		{Code: "S22.9", Diagnosis: "Fracture of rib, unspecified", Severity: SeverityMedium},
		{Code: "T14.8", Diagnosis: "Other injuries of unspecified body region", Severity: SeverityVariable},
	},
	Maternal: {
		{Code: "O72.1", Diagnosis: "Other immediate postpartum hemorrhage", Severity: SeverityHigh},
		{Code: "O15.9", Diagnosis: "Eclampsia, unspecified", Severity: SeverityHigh},
		{Code: "O60.1", Diagnosis: "Preterm labor with preterm delivery", Severity: SeverityHigh},
	},
	Stroke: {
		{Code: "I63.9", Diagnosis: "Cerebral infarction, unspecified", Severity: SeverityHigh},
		{Code: "I61.9", Diagnosis: "Intracerebral hemorrhage, unspecified", Severity: SeverityHigh},
	},
	Respiratory: {
		{Code: "J18.9", Diagnosis: "Pneumonia, unspecified", Severity: SeverityHigh},
		{Code: "J44.9", Diagnosis: "Chronic obstructive pulmonary disease, unspecified", Severity: SeverityMedium},
		{Code: "J96.00", Diagnosis: "Acute respiratory failure, unspecified", Severity: SeverityHigh},
	},
	Sepsis: {
		{Code: "A41.9", Diagnosis: "Sepsis, unspecified organism", Severity: SeverityHigh},
		{Code: "R65.20", Diagnosis: "Severe sepsis without septic shock", Severity: SeverityHigh},
	},
}

// DiagnosesFor returns up to limit diagnoses for a complaint in table order.
// Unknown complaints and non-positive limits yield an empty slice.
func DiagnosesFor(complaint string, limit int) []Diagnosis {
	all := icdDiagnoses[complaint]
	if limit <= 0 || len(all) == 0 {
		return []Diagnosis{}
	}
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]Diagnosis, limit)
	copy(out, all[:limit])
	return out
}

// Lookup adapts the static table to consumers that take a diagnosis source.
type Lookup struct{}

// DiagnosesFor implements the diagnosis source contract.
func (Lookup) DiagnosesFor(complaint string, limit int) []Diagnosis {
	return DiagnosesFor(complaint, limit)
}
