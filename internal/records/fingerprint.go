package records

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Fingerprint identifies the content of the candidate. The id is excluded and
// the skill set is order-insensitive.
func (c RawCandidate) Fingerprint() string {
	canonical := c
	canonical.ID = ""
	canonical.Skills = cleanSet(c.Skills)
	return digest(canonical)
}

// Fingerprint identifies the content of the job posting. The id is excluded
// and the required skill set is order-insensitive.
func (j RawJob) Fingerprint() string {
	canonical := j
	canonical.ID = ""
	canonical.RequiredSkills = cleanSet(j.RequiredSkills)
	return digest(canonical)
}

func digest(v any) string {
	// Struct fields encode in declaration order and map keys sorted, so the
	// encoding is canonical for these types.
	data, err := json.Marshal(v)
	if err != nil {
		// Only unsupported values inside Budget can get here.
		data = []byte(err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// cleanSet trims, drops empty entries and duplicates, and sorts.
func cleanSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
