package protocol

import (
	"errors"
	"strings"
)

// ErrProtocolNotFound is returned when no protocol exists for a case type.
var ErrProtocolNotFound = errors.New("no protocol found for this case type")

// ConditionProtocol is a sub-condition specific protocol.
type ConditionProtocol struct {
	Condition string   `json:"condition"`
	Protocol  []string `json:"protocol"`
	Targets   []string `json:"targets"`
}

// Protocol is the resuscitation guidance for a case type. General protocols
// fill the four step lists; Maternal carries condition protocols instead.
type Protocol struct {
	CaseType          string              `json:"case_type"`
	InitialAssessment []string            `json:"initial_assessment,omitempty"`
	Medications       []string            `json:"medications,omitempty"`
	CriticalActions   []string            `json:"critical_actions,omitempty"`
	ReferralCriteria  []string            `json:"referral_criteria,omitempty"`
	Conditions        []ConditionProtocol `json:"conditions,omitempty"`
}

// HasGeneralSteps reports whether the protocol carries the four step lists.
func (p Protocol) HasGeneralSteps() bool {
	return len(p.InitialAssessment) > 0
}

var resuscitationProtocols = map[string]Protocol{
	Cardiac: {
		InitialAssessment: []string{"ABC assessment", "12-lead ECG", "IV access", "Cardiac monitoring"},
		Medications:       []string{"Aspirin 300mg", "Clopidogrel 300mg", "Morphine for pain", "Oxygen if hypoxic"},
		CriticalActions:   []string{"STEMI activation if indicated", "Prepare for thrombolysis/PCI", "Monitor for arrhythmias"},
		ReferralCriteria:  []string{"STEMI on ECG", "Hemodynamic instability", "Refractory chest pain"},
	},
	Trauma: {
		InitialAssessment: []string{"Primary survey (ABCDE)", "C-spine immobilization", "Hemorrhage control", "FAST scan"},
		Medications:       []string{"Tranexamic acid 1g IV", "Analgesia as needed", "Tetanus prophylaxis"},
		CriticalActions:   []string{"Massive transfusion protocol if needed", "Prepare for emergency surgery", "Head CT if head injury"},
		ReferralCriteria:  []string{"GCS <13", "SBP <90", "Penetrating trauma to torso", "Unstable pelvic fracture"},
	},
	Maternal: {
		Conditions: []ConditionProtocol{
			{
				Condition: "Postpartum Hemorrhage",
				Protocol: []string{
					"Call for help - activate PPH protocol",
					"Uterine massage",
					"Oxytocin 40 units in 1L NS at 125ml/hr",
					"Misoprostol 800mcg PR",
					"Tranexamic acid 1g IV",
					"Consider intrauterine balloon tamponade",
				},
				Targets: []string{"Control bleeding within 15min", "SBP >90", "HR <120"},
			},
			{
				Condition: "Eclampsia",
				Protocol: []string{
					"Magnesium sulfate loading 4g IV over 20min",
					"Then 1g/hr maintenance",
					"BP control with labetalol/hydralazine",
					"Delivery planning",
				},
				Targets: []string{"Seizure control", "BP <160/110", "Prepare for delivery"},
			},
		},
	},
	Stroke: {
		InitialAssessment: []string{"NIHSS assessment", "Non-contrast CT head", "Blood glucose check"},
		Medications:       []string{"Consider thrombolysis if within window", "Aspirin if hemorrhagic excluded"},
		CriticalActions:   []string{"Neurology consult", "Monitor for deterioration", "Swallow assessment"},
		ReferralCriteria:  []string{"NIHSS >5", "Within thrombolysis window", "Hemorrhagic stroke needing neurosurgery"},
	},
	Sepsis: {
		InitialAssessment: []string{"Quick SOFA assessment", "Lactate level", "Blood cultures", "Source identification"},
		Medications:       []string{"Broad-spectrum antibiotics within 1hr", "IV fluids bolus", "Vasopressors if needed"},
		CriticalActions:   []string{"Measure lactate", "Administer antibiotics", "Fluid resuscitation", "Source control"},
		ReferralCriteria:  []string{"Lactate >4", "Need for vasopressors", "Organ dysfunction"},
	},
}

// ResuscitationSteps returns the protocol for a case type. For Maternal
// cases a diagnosis text containing a condition name narrows the result to
// that condition; otherwise every condition protocol is returned.
func ResuscitationSteps(caseType, diagnosis string) (Protocol, error) {
	p, ok := resuscitationProtocols[caseType]
	if !ok {
		return Protocol{}, ErrProtocolNotFound
	}
	p.CaseType = caseType

	if diagnosis != "" && len(p.Conditions) > 0 {
		needle := strings.ToLower(diagnosis)
		for _, c := range p.Conditions {
			if strings.Contains(needle, strings.ToLower(c.Condition)) {
				p.Conditions = []ConditionProtocol{c}
				return p, nil
			}
		}
	}
	return p, nil
}
