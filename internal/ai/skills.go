package ai

import (
	"sort"
	"strings"
)

var skillAliases = map[string]string{
	"golang":              "go",
	"k8s":                 "kubernetes",
	"js":                  "javascript",
	"ts":                  "typescript",
	"node":                "node.js",
	"nodejs":              "node.js",
	"postgres":            "postgresql",
	"psql":                "postgresql",
	"amazon web services": "aws",
	"gcp":                 "google cloud",
	"py":                  "python",
	"react.js":            "react",
	"reactjs":             "react",
	"ml":                  "machine learning",
}

// NormalizeSkill lower-cases, trims, collapses whitespace and resolves common
// aliases so that skill sets compare case-insensitively.
func NormalizeSkill(s string) string {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if canonical, ok := skillAliases[key]; ok {
		return canonical
	}
	return key
}

// NormalizeSkills normalizes, de-duplicates and sorts a skill list.
func NormalizeSkills(skills ...[]string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, list := range skills {
		for _, s := range list {
			n := NormalizeSkill(s)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
