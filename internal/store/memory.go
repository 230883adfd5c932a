package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/patient-feedback-server/internal/domain"
)

// MemoryStore is an in-memory RecordStore with the same contract as
// MongoStore. It backs unit tests and local development without a
// running database. Records iterate in insertion order so results are
// deterministic.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int]domain.FeedbackRecord
	order   []int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int]domain.FeedbackRecord),
	}
}

// Insert stores a new record, rejecting duplicate patient ids.
func (s *MemoryStore) Insert(_ context.Context, rec *domain.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.PatientID]; exists {
		return domain.ErrDuplicateRecord
	}
	s.records[rec.PatientID] = *rec
	s.order = append(s.order, rec.PatientID)
	return nil
}

// FindByPatientID retrieves one record or domain.ErrNotFound.
func (s *MemoryStore) FindByPatientID(_ context.Context, patientID int) (*domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[patientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Find returns all records matching the filter, in insertion order.
func (s *MemoryStore) Find(_ context.Context, filter domain.Filter) ([]domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.FeedbackRecord
	for _, id := range s.order {
		rec := s.records[id]
		if matches(&rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Count returns the number of records matching the filter.
func (s *MemoryStore) Count(_ context.Context, filter domain.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rec := range s.records {
		if matches(&rec, filter) {
			n++
		}
	}
	return n, nil
}

// UpdateByPatientID applies a sparse patch and returns 1 when the
// record existed and changed, matching the modified-count semantics of
// the document store.
func (s *MemoryStore) UpdateByPatientID(_ context.Context, patientID int, patch map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[patientID]
	if !ok {
		return 0, nil
	}

	before := rec
	for field, value := range patch {
		if err := setField(&rec, field, value); err != nil {
			return 0, err
		}
	}
	if rec == before {
		return 0, nil
	}
	s.records[patientID] = rec
	return 1, nil
}

// DeleteByPatientID removes one record and returns the deleted count.
func (s *MemoryStore) DeleteByPatientID(_ context.Context, patientID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[patientID]; !ok {
		return 0, nil
	}
	delete(s.records, patientID)
	for i, id := range s.order {
		if id == patientID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}

// matches evaluates a filter conjunction against one record.
func matches(rec *domain.FeedbackRecord, filter domain.Filter) bool {
	for field, cond := range filter {
		value, ok := rec.Field(field)
		if !ok {
			return false
		}
		switch cond.Op {
		case domain.MatchSubstringCI:
			want := strings.ToLower(fmt.Sprintf("%v", cond.Value))
			got := strings.ToLower(fmt.Sprintf("%v", value))
			if !strings.Contains(got, want) {
				return false
			}
		default:
			if value != cond.Value {
				return false
			}
		}
	}
	return true
}

// setField writes one patch value onto a record by wire name.
func setField(rec *domain.FeedbackRecord, field string, value interface{}) error {
	switch field {
	case "name":
		rec.Name = fmt.Sprintf("%v", value)
	case "email":
		rec.Email = fmt.Sprintf("%v", value)
	case "date":
		rec.Date = fmt.Sprintf("%v", value)
	case "other_comments":
		rec.OtherComments = fmt.Sprintf("%v", value)
	case "doc_involvement":
		rec.DocInvolvement = fmt.Sprintf("%v", value)
	case "nurse_promptness":
		rec.NursePromptness = fmt.Sprintf("%v", value)
	case "cleanliness":
		rec.Cleanliness = fmt.Sprintf("%v", value)
	case "timely_info":
		rec.TimelyInfo = fmt.Sprintf("%v", value)
	case "med_info":
		rec.MedInfo = fmt.Sprintf("%v", value)
	case "age":
		n, ok := value.(int)
		if !ok {
			return fmt.Errorf("patch value for age must be an int, got %T", value)
		}
		rec.Age = n
	case "overall_exp", "doc_care", "doc_comm", "nurse_care", "food_quality",
		"accommodation", "sanitization", "safety", "staff_support":
		n, ok := value.(int)
		if !ok {
			return fmt.Errorf("patch value for %s must be an int, got %T", field, value)
		}
		switch field {
		case "overall_exp":
			rec.OverallExp = n
		case "doc_care":
			rec.DocCare = n
		case "doc_comm":
			rec.DocComm = n
		case "nurse_care":
			rec.NurseCare = n
		case "food_quality":
			rec.FoodQuality = n
		case "accommodation":
			rec.Accommodation = n
		case "sanitization":
			rec.Sanitization = n
		case "safety":
			rec.Safety = n
		case "staff_support":
			rec.StaffSupport = n
		}
	default:
		return fmt.Errorf("unknown field %q in patch", field)
	}
	return nil
}
