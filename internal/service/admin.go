package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/patient-feedback-server/internal/domain"
)

// actionKeys are the submit-action discriminators; they never become
// filter conditions or patch fields.
var actionKeys = map[string]bool{
	"show":   true,
	"update": true,
	"delete": true,
}

// intFields are coerced to integer equality in filters and patches.
var intFields = map[string]bool{
	"patient_id": true,
	"age":        true,
}

// AdminService translates sparse admin-console forms into store
// operations: search, sparse-patch update and delete.
type AdminService struct {
	store domain.RecordStore
	log   *logrus.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(store domain.RecordStore, logger *logrus.Logger) *AdminService {
	return &AdminService{store: store, log: logger}
}

// BuildFilter turns the non-empty form values into a store filter.
// patient_id and age become integer equality, name a case-insensitive
// literal substring match, everything else exact equality. Action keys
// and empty values are ignored entirely.
func BuildFilter(form map[string]string) (domain.Filter, error) {
	filter := domain.Filter{}
	for field, value := range form {
		if value == "" || actionKeys[field] {
			continue
		}
		switch {
		case intFields[field]:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, domain.NewValidationError(field, "must be an integer", value)
			}
			filter.Eq(field, n)
		case field == "name":
			filter.SubstringCI(field, value)
		default:
			filter.Eq(field, value)
		}
	}
	return filter, nil
}

// Criteria builds the human-readable search summary by joining
// "field: value" pairs with " and ". Action keys and empty values are
// excluded. Fields appear in sorted order so the summary is stable.
func Criteria(form map[string]string) string {
	fields := make([]string, 0, len(form))
	for field, value := range form {
		if value == "" || actionKeys[field] {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, form[field]))
	}
	return strings.Join(parts, " and ")
}

// Search returns all records matching the form's criteria.
func (s *AdminService) Search(ctx context.Context, form map[string]string) ([]domain.FeedbackRecord, error) {
	filter, err := BuildFilter(form)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return records, nil
}

// Update applies a sparse patch: only non-empty supplied fields
// overwrite the stored record. Returns domain.ErrNothingToDo when the
// form holds no usable values, a ValidationError on a malformed id,
// and domain.ErrNotFound when no record was modified.
func (s *AdminService) Update(ctx context.Context, form map[string]string) error {
	patientID, patch, err := buildPatch(form)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return domain.ErrNothingToDo
	}

	modified, err := s.store.UpdateByPatientID(ctx, patientID, patch)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if modified == 0 {
		return domain.ErrNotFound
	}

	s.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"fields":     len(patch),
	}).Info("Feedback record updated")
	return nil
}

// Delete removes at most one record by exact patient id. Returns
// domain.ErrNothingToDo when no id was supplied and domain.ErrNotFound
// when nothing was deleted.
func (s *AdminService) Delete(ctx context.Context, form map[string]string) error {
	raw := form["patient_id"]
	if raw == "" {
		return domain.ErrNothingToDo
	}
	patientID, err := strconv.Atoi(raw)
	if err != nil {
		return domain.NewValidationError("patient_id", "must be an integer", raw)
	}

	deleted, err := s.store.DeleteByPatientID(ctx, patientID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if deleted == 0 {
		return domain.ErrNotFound
	}

	s.log.WithField("patient_id", patientID).Info("Feedback record deleted")
	return nil
}

// buildPatch extracts the target patient id and the sparse patch of
// non-empty fields from an update form. Only the survey's wire names
// are patchable; an unknown field is a validation error rather than a
// new document field.
func buildPatch(form map[string]string) (int, map[string]interface{}, error) {
	raw := form["patient_id"]
	if raw == "" {
		return 0, nil, domain.ErrNothingToDo
	}
	patientID, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil, domain.NewValidationError("patient_id", "must be an integer", raw)
	}

	patch := make(map[string]interface{})
	for field, value := range form {
		if value == "" || actionKeys[field] || field == "patient_id" {
			continue
		}
		if _, known := (&domain.FeedbackRecord{}).Field(field); !known {
			return 0, nil, domain.NewValidationError(field, "unknown field", value)
		}
		if intFields[field] {
			n, err := strconv.Atoi(value)
			if err != nil {
				return 0, nil, domain.NewValidationError(field, "must be an integer", value)
			}
			patch[field] = n
			continue
		}
		patch[field] = value
	}
	return patientID, patch, nil
}
