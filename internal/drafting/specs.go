package drafting

const generateSpec = `Respond with a single JSON object that is a FHIR R5 ServiceRequest:

{
  "resourceType": "ServiceRequest",
  "status": "active",
  "intent": "order",
  "priority": "<routine|urgent|asap|stat>",
  "subject": {"reference": "Patient/<id>"},
  "requester": {"reference": "<Type/id>"},
  "code": {"concept": {"coding": [{"system": "http://snomed.info/sct", "code": "<code>", "display": "<display>"}], "text": "<service>"}},
  "reason": [{"concept": {"coding": [{"system": "http://snomed.info/sct", "code": "<code>", "display": "<display>"}], "text": "<reason>"}}],
  "note": [{"text": "<supporting detail>"}]
}

Field constraints:
- status: "active" or "draft".
- intent: "order".
- subject: use the patient reference supplied below when one is given.
- requester: use the requester reference supplied below when one is given,
  otherwise omit the element.
- encounter: omit unless the document names a valid encounter reference.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Return only the resource, no commentary`

const fixSpec = `Respond with the complete corrected ServiceRequest as a single JSON object.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Return the whole resource, not a patch
- resourceType must remain "ServiceRequest"
- Do not remove the subject reference`

var specs = map[Stage]string{
	StageGenerate: generateSpec,
	StageFix:      fixSpec,
}

// Spec returns the output contract for a drafting stage.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
