package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Repository holds the raw candidates and jobs. It is loaded from JSON files
// and never writes them back; candidates posted at runtime live in memory.
type Repository struct {
	mu sync.RWMutex

	candidates     []RawCandidate
	candidateIndex map[ID]int

	jobs     []RawJob
	jobIndex map[ID]int
}

func NewRepository() *Repository {
	return &Repository{
		candidateIndex: map[ID]int{},
		jobIndex:       map[ID]int{},
	}
}

// LoadRepository reads both files. A missing file yields an empty set; invalid
// records are skipped and logged.
func LoadRepository(candidatesFile, jobsFile string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo := NewRepository()

	var candidates []RawCandidate
	if err := readJSONFile(candidatesFile, &candidates); err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}
	for _, c := range candidates {
		if err := Validate(c); err != nil {
			logger.Warn("skipping candidate", zap.String("id", c.ID.String()), zap.Error(err))
			continue
		}
		repo.putCandidate(c)
	}

	var jobs []RawJob
	if err := readJSONFile(jobsFile, &jobs); err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	for _, j := range jobs {
		if err := Validate(j); err != nil {
			logger.Warn("skipping job", zap.String("title", j.JobTitle), zap.Error(err))
			continue
		}
		repo.putJob(j.WithDerivedID())
	}

	logger.Info("records loaded",
		zap.Int("candidates", len(repo.candidates)),
		zap.Int("jobs", len(repo.jobs)),
	)

	return repo, nil
}

func readJSONFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (r *Repository) putCandidate(c RawCandidate) {
	if i, ok := r.candidateIndex[c.ID]; ok {
		r.candidates[i] = c
		return
	}
	r.candidateIndex[c.ID] = len(r.candidates)
	r.candidates = append(r.candidates, c)
}

func (r *Repository) putJob(j RawJob) {
	if i, ok := r.jobIndex[j.ID]; ok {
		r.jobs[i] = j
		return
	}
	r.jobIndex[j.ID] = len(r.jobs)
	r.jobs = append(r.jobs, j)
}

// UpsertCandidates adds or replaces candidates by id.
func (r *Repository) UpsertCandidates(candidates ...RawCandidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range candidates {
		r.putCandidate(c)
	}
}

// UpsertJob adds or replaces a job and returns it with its resolved id.
func (r *Repository) UpsertJob(job RawJob) RawJob {
	job = job.WithDerivedID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putJob(job)
	return job
}

// Candidates returns a snapshot of the pool in ingestion order.
func (r *Repository) Candidates() []RawCandidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RawCandidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

func (r *Repository) Candidate(id ID) (RawCandidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.candidateIndex[id]
	if !ok {
		return RawCandidate{}, fmt.Errorf("candidate %q: %w", id, ErrRecordNotFound)
	}
	return r.candidates[i], nil
}

// Jobs returns a snapshot of the jobs in ingestion order.
func (r *Repository) Jobs() []RawJob {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RawJob, len(r.jobs))
	copy(out, r.jobs)
	return out
}

func (r *Repository) Job(id ID) (RawJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.jobIndex[id]
	if !ok {
		return RawJob{}, fmt.Errorf("job %q: %w", id, ErrRecordNotFound)
	}
	return r.jobs[i], nil
}
