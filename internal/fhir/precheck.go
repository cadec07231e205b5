package fhir

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/JaimeStill/referrals/internal/workflow"
)

const resourceType = "ServiceRequest"

var (
	statuses = []string{
		"draft", "active", "on-hold", "revoked",
		"completed", "entered-in-error", "unknown",
	}
	intents = []string{
		"proposal", "plan", "directive", "order", "original-order",
		"reflex-order", "filler-order", "instance-order", "option",
	}
	referencePattern = regexp.MustCompile(`^[A-Z][a-zA-Z]+/[A-Za-z0-9\-.]{1,64}$`)
)

// Precheck performs the structural checks that do not need the server:
// resource type, status and intent value sets, and a well-formed subject
// reference.
func Precheck(c workflow.Candidate) []workflow.Violation {
	var out []workflow.Violation
	add := func(path, reason string) {
		out = append(out, workflow.Violation{Path: path, Reason: reason})
	}

	if rt, _ := c["resourceType"].(string); rt != resourceType {
		add("resourceType", fmt.Sprintf("must be %q, got %q", resourceType, rt))
	}

	checkCode := func(field string, allowed []string) {
		v, ok := c[field].(string)
		switch {
		case !ok || v == "":
			add(resourceType+"."+field, "required")
		case !slices.Contains(allowed, v):
			add(resourceType+"."+field, fmt.Sprintf("%q is not in the value set", v))
		}
	}
	checkCode("status", statuses)
	checkCode("intent", intents)

	subject, _ := c["subject"].(map[string]any)
	ref, _ := subject["reference"].(string)
	switch {
	case ref == "":
		add(resourceType+".subject.reference", "required")
	case !referencePattern.MatchString(ref):
		add(resourceType+".subject.reference", fmt.Sprintf("%q is not a Type/id reference", ref))
	}

	return out
}
