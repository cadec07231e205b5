package drafting

const generateInstructions = `You are a healthcare data specialist converting a clinical referral document into a FHIR R5 ServiceRequest resource.

Read the referral text and capture the requested service, its clinical reason, the urgency, and any supporting notes. Use SNOMED CT codes for the requested service and the reason when the document supports them; otherwise provide a text-only CodeableConcept. Do not invent encounters, identifiers, or references that are not supplied to you.`

const fixInstructions = `You are correcting a FHIR R5 ServiceRequest that failed validation.

Apply the smallest change that resolves every listed violation. Keep all fields that are not implicated by a violation exactly as they are. When a violation names a path, edit that element; when a value is outside its value set, replace it with the closest valid code.`

var instructions = map[Stage]string{
	StageGenerate: generateInstructions,
	StageFix:      fixInstructions,
}

// Instructions returns the system guidance for a drafting stage.
func Instructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
