package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	KindCandidate = "candidate"
	KindJob       = "job"
)

// ID is a record identifier. It decodes from both JSON strings and numbers
// and is always encoded as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id must be a string or a number: %w", err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type Experience struct {
	Company     string `json:"company" validate:"required"`
	Role        string `json:"role" validate:"required"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

type Education struct {
	Institution      string `json:"institution,omitempty"`
	Degree           string `json:"degree,omitempty"`
	YearOfGraduation int    `json:"year_of_graduation,omitempty"`
	Description      string `json:"description,omitempty"`
}

// RawCandidate is a candidate profile as ingested. It is never mutated after
// ingestion.
type RawCandidate struct {
	ID          ID           `json:"id" validate:"required"`
	FirstName   string       `json:"first_name,omitempty"`
	LastName    string       `json:"last_name,omitempty"`
	Email       string       `json:"email,omitempty" validate:"omitempty,email"`
	Birthdate   string       `json:"birthdate,omitempty"`
	Age         int          `json:"age,omitempty" validate:"gte=0"`
	Phone       string       `json:"phone,omitempty"`
	Address     string       `json:"address,omitempty"`
	Domain      string       `json:"domain,omitempty"`
	Skills      []string     `json:"skills,omitempty"`
	Experiences []Experience `json:"experiences,omitempty" validate:"dive"`
	Education   []Education  `json:"education,omitempty"`
}

// FullName joins first and last name.
func (c RawCandidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasContent reports whether the profile carries anything a feature extractor
// could work with.
func (c RawCandidate) HasContent() bool {
	if len(cleanSet(c.Skills)) > 0 {
		return true
	}
	for _, exp := range c.Experiences {
		if strings.TrimSpace(exp.Role+exp.Company+exp.Description) != "" {
			return true
		}
	}
	for _, edu := range c.Education {
		if strings.TrimSpace(edu.Degree+edu.Institution+edu.Description) != "" {
			return true
		}
	}
	return false
}

// RawJob is a job posting as ingested.
type RawJob struct {
	ID             ID             `json:"id,omitempty"`
	JobTitle       string         `json:"job_title" validate:"required"`
	CompanyName    string         `json:"company_name,omitempty"`
	Location       string         `json:"location,omitempty"`
	JobDescription string         `json:"job_description,omitempty"`
	RequiredSkills []string       `json:"required_skills,omitempty"`
	Budget         map[string]any `json:"budget,omitempty"`
}

// HasContent reports whether the posting has a description or skills.
func (j RawJob) HasContent() bool {
	return strings.TrimSpace(j.JobDescription) != "" || len(cleanSet(j.RequiredSkills)) > 0
}

// WithDerivedID returns the job with its id set from the content
// fingerprint when it has none.
func (j RawJob) WithDerivedID() RawJob {
	if strings.TrimSpace(string(j.ID)) != "" {
		return j
	}
	j.ID = ID("job-" + j.Fingerprint()[:12])
	return j
}
