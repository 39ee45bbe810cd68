package ai

import (
	"encoding/json"
	"strings"
)

type Seniority string

const (
	SeniorityUnknown Seniority = "unknown"
	SeniorityJunior  Seniority = "junior"
	SeniorityMid     Seniority = "mid"
	SenioritySenior  Seniority = "senior"
	SeniorityLead    Seniority = "lead"
	SeniorityManager Seniority = "manager"
)

var seniorityAliases = map[string]Seniority{
	"junior":           SeniorityJunior,
	"entry":            SeniorityJunior,
	"entry-level":      SeniorityJunior,
	"intern":           SeniorityJunior,
	"mid":              SeniorityMid,
	"mid-level":        SeniorityMid,
	"middle":           SeniorityMid,
	"intermediate":     SeniorityMid,
	"senior":           SenioritySenior,
	"sr":               SenioritySenior,
	"lead":             SeniorityLead,
	"principal":        SeniorityLead,
	"staff":            SeniorityLead,
	"manager":          SeniorityManager,
	"director":         SeniorityManager,
	"manager/director": SeniorityManager,
	"head":             SeniorityManager,
}

// ParseSeniority maps free-form seniority labels to the known levels.
func ParseSeniority(s string) Seniority {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.Join(strings.Fields(key), " ")
	if level, ok := seniorityAliases[key]; ok {
		return level
	}
	if level, ok := seniorityAliases[strings.ReplaceAll(key, " ", "-")]; ok {
		return level
	}
	return SeniorityUnknown
}

// DefaultExperienceYears is the minimum experience assumed for a level when a
// posting states none.
func (s Seniority) DefaultExperienceYears() float64 {
	switch s {
	case SeniorityMid:
		return 2
	case SenioritySenior:
		return 5
	case SeniorityLead, SeniorityManager:
		return 8
	default:
		return 0
	}
}

func (s *Seniority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSeniority(raw)
	return nil
}
