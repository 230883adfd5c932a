package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patient-feedback-server/internal/cache"
	"github.com/patient-feedback-server/internal/domain"
)

// IntakeService validates a submitted feedback form, guards against
// duplicate submissions and persists the canonical record.
type IntakeService struct {
	store    domain.RecordStore
	cache    domain.Cache
	sessions domain.SessionStore
	log      *logrus.Logger
}

// NewIntakeService creates a new intake service.
func NewIntakeService(store domain.RecordStore, c domain.Cache, sessions domain.SessionStore, logger *logrus.Logger) *IntakeService {
	return &IntakeService{
		store:    store,
		cache:    c,
		sessions: sessions,
		log:      logger,
	}
}

// Submit runs the submission guard and the intake pipeline for one
// form. On success exactly one record exists for the patient id.
//
// The guard rejects when the session already carries any marker
// (presence, not equality) or when the store already holds the id.
// Both are fast paths; the store's unique index is authoritative, so
// two racing sessions cannot both insert.
func (s *IntakeService) Submit(ctx context.Context, sessionID string, form map[string]string) error {
	patientID, err := parseInt(form, "patient_id")
	if err != nil {
		return err
	}

	mark, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if mark != nil {
		return domain.ErrDuplicateSubmission
	}

	if _, err := s.store.FindByPatientID(ctx, patientID); err == nil {
		return domain.ErrDuplicateSubmission
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	// Mark the session before any further processing so a double
	// submit from the same client short-circuits immediately.
	if err := s.sessions.Save(ctx, sessionID, &domain.SessionData{
		PatientID: patientID,
		MarkedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("marking session: %w", err)
	}

	rec, err := buildRecord(patientID, form)
	if err != nil {
		return err
	}

	// Store first: it is the single source of truth. The cache mirror
	// is written only after the insert commits.
	if err := s.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateRecord) {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record for cache: %w", err)
	}
	if err := s.cache.Set(ctx, cache.RecordKey(patientID), payload); err != nil {
		// Best-effort mirror; the record is already durable.
		s.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Warn("Cache mirror write failed")
	}

	s.log.WithField("patient_id", patientID).Info("Feedback submission stored")
	return nil
}

// buildRecord parses and normalizes the raw form into a canonical
// record. Ratings must be integers in [1,5]; binary and free-text
// fields are copied verbatim.
func buildRecord(patientID int, form map[string]string) (*domain.FeedbackRecord, error) {
	age, err := parseInt(form, "age")
	if err != nil {
		return nil, err
	}

	ratings := make(map[string]int, len(domain.RatingFields))
	for _, field := range domain.RatingFields {
		v, err := parseInt(form, field)
		if err != nil {
			return nil, err
		}
		if v < domain.RatingMin || v > domain.RatingMax {
			return nil, domain.NewValidationError(field,
				fmt.Sprintf("rating must be between %d and %d", domain.RatingMin, domain.RatingMax),
				form[field])
		}
		ratings[field] = v
	}

	return &domain.FeedbackRecord{
		PatientID: patientID,
		Name:      form["name"],
		Age:       age,
		Email:     form["email"],
		Date:      form["date"],

		OverallExp:    ratings["overall_exp"],
		DocCare:       ratings["doc_care"],
		DocComm:       ratings["doc_comm"],
		NurseCare:     ratings["nurse_care"],
		FoodQuality:   ratings["food_quality"],
		Accommodation: ratings["accommodation"],
		Sanitization:  ratings["sanitization"],
		Safety:        ratings["safety"],
		StaffSupport:  ratings["staff_support"],

		DocInvolvement:  form["doc_involvement"],
		NursePromptness: form["nurse_promptness"],
		Cleanliness:     form["cleanliness"],
		TimelyInfo:      form["timely_info"],
		MedInfo:         form["med_info"],

		OtherComments: form["other_comments"],
	}, nil
}

// parseInt reads a required integer form field.
func parseInt(form map[string]string, field string) (int, error) {
	raw, ok := form[field]
	if !ok || raw == "" {
		return 0, domain.NewValidationError(field, "required field is missing", "")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer", raw)
	}
	return v, nil
}
