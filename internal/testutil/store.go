// Package testutil provides in-memory fakes for the store and metastore
// boundaries.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lakemerge/internal/domain"
	"lakemerge/internal/table"
)

// MemoryStore is an in-memory domain.TableStore keyed by destination name.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*table.Table

	// Writes records every WriteTable call for assertions.
	Writes []domain.WriteMode
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*table.Table)}
}

// Seed stores a table without going through write-mode checks.
func (s *MemoryStore) Seed(dest domain.Destination, t *table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[dest.String()] = t
}

// Get returns the stored table, or nil.
func (s *MemoryStore) Get(dest domain.Destination) *table.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[dest.String()]
}

// ReadTable implements domain.TableStore.
func (s *MemoryStore) ReadTable(_ context.Context, dest domain.Destination) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[dest.String()]
	if !ok {
		return nil, domain.ErrNotFound("table %s not found", dest)
	}
	return t, nil
}

// WriteTable implements domain.TableStore.
func (s *MemoryStore) WriteTable(_ context.Context, t *table.Table, dest domain.Destination, mode domain.WriteMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes = append(s.Writes, mode)
	key := dest.String()
	existing, exists := s.tables[key]
	switch mode {
	case domain.WriteModeCreate:
		if exists {
			return fmt.Errorf("destination %s already exists", dest)
		}
		s.tables[key] = t
	case domain.WriteModeOverwrite:
		s.tables[key] = t
	case domain.WriteModeAppend:
		if !exists {
			s.tables[key] = t
			return nil
		}
		rows := make([][]any, 0, existing.NumRows()+t.NumRows())
		for r := 0; r < existing.NumRows(); r++ {
			rows = append(rows, existing.Row(r))
		}
		for r := 0; r < t.NumRows(); r++ {
			rows = append(rows, t.Row(r))
		}
		merged, err := table.New(existing.Schema(), rows)
		if err != nil {
			return err
		}
		s.tables[key] = merged
	default:
		return fmt.Errorf("unknown write mode %q", mode)
	}
	return nil
}

// DestinationExists implements domain.TableStore.
func (s *MemoryStore) DestinationExists(_ context.Context, dest domain.Destination) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[dest.String()]
	return ok, nil
}

// MemoryRunRepo is an in-memory domain.JobRunRepository.
type MemoryRunRepo struct {
	mu   sync.Mutex
	runs map[string]*domain.JobRun
	seq  int
}

// NewMemoryRunRepo creates an empty MemoryRunRepo.
func NewMemoryRunRepo() *MemoryRunRepo {
	return &MemoryRunRepo{runs: make(map[string]*domain.JobRun)}
}

// CreateRun implements domain.JobRunRepository.
func (r *MemoryRunRepo) CreateRun(_ context.Context, run *domain.JobRun) (*domain.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	out := *run
	out.ID = fmt.Sprintf("run-%d", r.seq)
	out.CreatedAt = time.Now().UTC()
	r.runs[out.ID] = &out
	copied := out
	return &copied, nil
}

// FinishRun implements domain.JobRunRepository.
func (r *MemoryRunRepo) FinishRun(_ context.Context, run *domain.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return domain.ErrNotFound("job run %q not found", run.ID)
	}
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

// GetRun implements domain.JobRunRepository.
func (r *MemoryRunRepo) GetRun(_ context.Context, id string) (*domain.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrNotFound("job run %q not found", id)
	}
	copied := *run
	return &copied, nil
}

// ListRuns implements domain.JobRunRepository.
func (r *MemoryRunRepo) ListRuns(_ context.Context, filter domain.JobRunFilter) ([]domain.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.JobRun
	for _, run := range r.runs {
		if filter.JobName != nil && run.JobName != *filter.JobName {
			continue
		}
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		out = append(out, *run)
	}
	return out, nil
}

// Compile-time checks.
var (
	_ domain.TableStore       = (*MemoryStore)(nil)
	_ domain.JobRunRepository = (*MemoryRunRepo)(nil)
)
