package extract

import (
	"regexp"
	"strings"
)

// Sections is the best-effort structured breakdown of a resume. The routing is
// heuristic; documents keep full formatting freedom and misrouted lines land
// in Misc rather than failing extraction.
type Sections struct {
	Summary    string   `json:"summary"`
	Experience []string `json:"experience"`
	Projects   []string `json:"projects"`
	Skills     []string `json:"skills"`
	Education  []string `json:"education"`
	Misc       []string `json:"misc"`
}

const (
	sectionSummary    = "summary"
	sectionExperience = "experience"
	sectionProjects   = "projects"
	sectionSkills     = "skills"
	sectionEducation  = "education"
	sectionMisc       = "misc"
)

var sectionAliases = []struct {
	key     string
	aliases []string
}{
	{sectionSummary, []string{"summary", "profile", "about", "professional summary"}},
	{sectionExperience, []string{"experience", "work experience", "professional experience"}},
	{sectionProjects, []string{"projects", "project"}},
	{sectionSkills, []string{"skills", "technical skills", "technologies", "tech stack"}},
	{sectionEducation, []string{"education", "academic", "academics"}},
}

var (
	nonLetter     = regexp.MustCompile(`[^a-z]`)
	contactLine   = regexp.MustCompile(`(?i)@|linkedin|github|\+?\d[\d\s-]{7,}`)
	educationLine = regexp.MustCompile(`(?i)bachelor|master|b\.?tech|university|institute|college`)
	skillLabel    = regexp.MustCompile(`(?i)^(languages|frameworks|developer tools|databases|platforms)\s*:`)
	projectTech   = regexp.MustCompile(`(?i)react|next|node|mongo|postgres|mysql|typescript|javascript|stripe|clerk|socket|cloudinary|prisma|docker|aws`)
	projectMarker = regexp.MustCompile(`\(live\)|\(code\)|\bapplication\b`)

	aliasBreakPatterns = buildAliasBreakPatterns()
)

var techTokens = []string{
	"react", "next", "node", "express", "typescript", "javascript",
	"postgres", "mongodb", "mysql", "docker", "aws", "prisma",
	"python", "java", "c++",
}

// StructureText routes the lines of normalized resume text into sections.
// Rule order is load-bearing: a line can match several heuristics, and the
// contact check must win over skills, education over skills, and so on.
func StructureText(rawText string) Sections {
	prepared := injectSectionBreaks(rawText)
	lines := splitLines(prepared)

	sections := Sections{
		Experience: []string{},
		Projects:   []string{},
		Skills:     []string{},
		Education:  []string{},
		Misc:       []string{},
	}
	current := sectionMisc

	for _, line := range lines {
		if header, ok := detectSectionHeader(line); ok {
			current = header
			continue
		}

		if contactLine.MatchString(line) {
			sections.Misc = append(sections.Misc, line)
			continue
		}

		if educationLine.MatchString(line) && current != sectionExperience {
			sections.Education = append(sections.Education, line)
			continue
		}

		if skillLabel.MatchString(line) || looksLikeSkillList(line) {
			sections.Skills = append(sections.Skills, line)
			continue
		}

		if looksLikeProjectLine(line) && current != sectionExperience {
			sections.Projects = append(sections.Projects, line)
			continue
		}

		switch current {
		case sectionSummary:
			if sections.Summary == "" {
				sections.Summary = line
			} else {
				sections.Summary += " " + line
			}
		case sectionExperience:
			sections.Experience = append(sections.Experience, line)
		case sectionProjects:
			sections.Projects = append(sections.Projects, line)
		case sectionSkills:
			sections.Skills = append(sections.Skills, line)
		case sectionEducation:
			sections.Education = append(sections.Education, line)
		default:
			sections.Misc = append(sections.Misc, line)
		}
	}

	return sections
}

// injectSectionBreaks forces recognized section headers onto their own lines
// so single-line extractions (common with PDF text runs) still split.
func injectSectionBreaks(text string) string {
	out := text
	for _, p := range aliasBreakPatterns {
		out = p.ReplaceAllString(out, "\n$1\n")
	}
	return out
}

func buildAliasBreakPatterns() []*regexp.Regexp {
	var patterns []*regexp.Regexp
	for _, group := range sectionAliases {
		for _, alias := range group.aliases {
			words := strings.Fields(alias)
			for i, w := range words {
				words[i] = regexp.QuoteMeta(w)
			}
			patterns = append(patterns, regexp.MustCompile(`(?i)\b(`+strings.Join(words, `\s+`)+`)\b:?`))
		}
	}
	return patterns
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// detectSectionHeader matches a whole line against the alias list, ignoring
// case and non-letter characters.
func detectSectionHeader(line string) (string, bool) {
	normalized := normalizeForMatch(line)
	if normalized == "" {
		return "", false
	}
	for _, group := range sectionAliases {
		for _, alias := range group.aliases {
			if normalizeForMatch(alias) == normalized {
				return group.key, true
			}
		}
	}
	return "", false
}

func normalizeForMatch(value string) string {
	return nonLetter.ReplaceAllString(strings.ToLower(value), "")
}

func looksLikeSkillList(line string) bool {
	lower := strings.ToLower(line)
	hits := 0
	for _, token := range techTokens {
		if strings.Contains(lower, token) {
			hits++
		}
	}
	return hits >= 2 || (strings.Contains(line, ",") && hits >= 1)
}

func looksLikeProjectLine(line string) bool {
	if strings.Contains(line, "|") && projectTech.MatchString(line) {
		return true
	}
	return projectMarker.MatchString(strings.ToLower(line))
}
