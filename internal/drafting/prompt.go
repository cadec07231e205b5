package drafting

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Section is a titled block appended after the stage instructions and spec.
type Section struct {
	Title string
	Body  string
}

// JSONSection renders v as indented JSON under title.
func JSONSection(title string, v any) (Section, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Section{}, fmt.Errorf("serialize %s: %w", strings.ToLower(title), err)
	}
	return Section{Title: title, Body: string(data)}, nil
}

// ComposePrompt joins the instructions and spec for stage with the given
// context sections. Empty sections are skipped.
func ComposePrompt(stage Stage, sections ...Section) (string, error) {
	instructions, err := Instructions(stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := Spec(stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	for _, s := range sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		sb.WriteString("\n\n")
		sb.WriteString(s.Title)
		sb.WriteString(":\n\n")
		sb.WriteString(s.Body)
	}

	return sb.String(), nil
}
