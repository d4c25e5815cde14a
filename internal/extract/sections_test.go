package extract

import (
	"reflect"
	"strings"
	"testing"
)

func TestStructureTextSectionsByHeader(t *testing.T) {
	text := strings.Join([]string{
		"Summary",
		"Seasoned backend developer.",
		"Experience",
		"Led payments team at Acme Corp",
		"Education",
		"Example University, 2019",
	}, "\n")

	got := StructureText(text)

	if got.Summary != "Seasoned backend developer." {
		t.Fatalf("summary = %q", got.Summary)
	}
	if !reflect.DeepEqual(got.Experience, []string{"Led payments team at Acme Corp"}) {
		t.Fatalf("experience = %#v", got.Experience)
	}
	if len(got.Education) != 1 || !strings.Contains(got.Education[0], "Example University") {
		t.Fatalf("education = %#v", got.Education)
	}
}

func TestStructureTextContactBeatsSkills(t *testing.T) {
	// Matches both the contact pattern and the skill-list pattern; the
	// contact check must win.
	line := "Contact: jane@x.com, React, Node, Express"

	got := StructureText(line)

	if len(got.Misc) != 1 || got.Misc[0] != line {
		t.Fatalf("expected contact line in misc, got misc=%#v skills=%#v", got.Misc, got.Skills)
	}
	if len(got.Skills) != 0 {
		t.Fatalf("skills should be empty, got %#v", got.Skills)
	}
}

func TestStructureTextEducationSkippedInsideExperience(t *testing.T) {
	text := strings.Join([]string{
		"Experience",
		"Mentored interns pursuing a Bachelor degree",
		"Education",
		"Master of Science, Example Institute",
	}, "\n")

	got := StructureText(text)

	if len(got.Experience) != 1 || !strings.Contains(got.Experience[0], "Mentored interns") {
		t.Fatalf("experience = %#v", got.Experience)
	}
	if len(got.Education) != 1 || !strings.Contains(got.Education[0], "Master of Science") {
		t.Fatalf("education = %#v", got.Education)
	}
}

func TestStructureTextSkillsDetection(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "label line", line: "Languages: Go, SQL"},
		{name: "two tokens", line: "Worked with Docker and Postgres daily"},
		{name: "one token plus comma list", line: "Python, pandas, numpy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StructureText(tt.line)
			if len(got.Skills) != 1 {
				t.Fatalf("expected %q in skills, got %#v (misc=%#v)", tt.line, got.Skills, got.Misc)
			}
		})
	}
}

func TestStructureTextProjectDetection(t *testing.T) {
	got := StructureText("ShopFast | React (live)")
	if len(got.Projects) != 1 {
		t.Fatalf("expected project line, got projects=%#v skills=%#v", got.Projects, got.Skills)
	}
}

func TestStructureTextProjectSkippedInsideExperience(t *testing.T) {
	text := strings.Join([]string{
		"Experience",
		"Shipped an internal tooling application",
	}, "\n")

	got := StructureText(text)
	if len(got.Experience) != 1 {
		t.Fatalf("expected line kept in experience, got experience=%#v projects=%#v", got.Experience, got.Projects)
	}
}

func TestStructureTextInjectedHeaders(t *testing.T) {
	// PDF extraction often yields a single run of text; header keywords must
	// still start sections.
	text := "About Enthusiastic engineer. Work Experience Did backend work at Beta Inc"

	got := StructureText(text)

	if !strings.Contains(got.Summary, "Enthusiastic engineer.") {
		t.Fatalf("summary = %q", got.Summary)
	}
	if len(got.Experience) == 0 {
		t.Fatalf("expected experience entries, got %#v", got)
	}
}

func TestStructureTextSummaryJoinsLines(t *testing.T) {
	text := strings.Join([]string{
		"Profile",
		"First sentence.",
		"Second sentence.",
	}, "\n")

	got := StructureText(text)
	if got.Summary != "First sentence. Second sentence." {
		t.Fatalf("summary = %q", got.Summary)
	}
}

func TestStructureTextDefaultsToMisc(t *testing.T) {
	got := StructureText("Just an unremarkable line")
	if len(got.Misc) != 1 {
		t.Fatalf("expected misc routing, got %#v", got)
	}
}
