package records

import (
	"fmt"
	"strings"
)

// Text renders the profile as plain text.
func (c RawCandidate) Text() string {
	var b strings.Builder
	if d := strings.TrimSpace(c.Domain); d != "" {
		fmt.Fprintf(&b, "Domain: %s.\n", d)
	}
	if skills := cleanSet(c.Skills); len(skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s.\n", strings.Join(skills, ", "))
	}
	for _, exp := range c.Experiences {
		fmt.Fprintf(&b, "%s at %s", strings.TrimSpace(exp.Role), strings.TrimSpace(exp.Company))
		if d := strings.TrimSpace(exp.Description); d != "" {
			fmt.Fprintf(&b, ": %s", d)
		}
		b.WriteString("\n")
	}
	for _, edu := range c.Education {
		fmt.Fprintf(&b, "%s, %s", strings.TrimSpace(edu.Degree), strings.TrimSpace(edu.Institution))
		if d := strings.TrimSpace(edu.Description); d != "" {
			fmt.Fprintf(&b, ": %s", d)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Text renders the posting as plain text.
func (j RawJob) Text() string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(j.JobTitle); t != "" {
		parts = append(parts, t+".")
	}
	if d := strings.TrimSpace(j.JobDescription); d != "" {
		parts = append(parts, d)
	}
	if skills := cleanSet(j.RequiredSkills); len(skills) > 0 {
		parts = append(parts, "Required skills: "+strings.Join(skills, ", ")+".")
	}
	return strings.Join(parts, " ")
}
