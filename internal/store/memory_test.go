package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patient-feedback-server/internal/domain"
)

func sampleRecord(patientID int) *domain.FeedbackRecord {
	return &domain.FeedbackRecord{
		PatientID:       patientID,
		Name:            "Jordan Lee",
		Age:             42,
		Email:           "jordan@example.com",
		Date:            "2026-08-14",
		OverallExp:      4,
		DocCare:         5,
		DocComm:         3,
		NurseCare:       4,
		FoodQuality:     2,
		Accommodation:   3,
		Sanitization:    5,
		Safety:          4,
		StaffSupport:    5,
		DocInvolvement:  "yes",
		NursePromptness: "no",
		Cleanliness:     "yes",
		TimelyInfo:      "yes",
		MedInfo:         "no",
		OtherComments:   "quick discharge",
	}
}

func TestMemoryStore_InsertAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, sampleRecord(1)))

	got, err := s.FindByPatientID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *sampleRecord(1), *got)
}

func TestMemoryStore_InsertDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, sampleRecord(7)))

	err := s.Insert(ctx, sampleRecord(7))
	assert.ErrorIs(t, err, domain.ErrDuplicateRecord)

	n, err := s.Count(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "duplicate insert must never produce a second record")
}

func TestMemoryStore_FindByPatientID_Missing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.FindByPatientID(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_Find_SubstringCI(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := sampleRecord(1)
	first.Name = "Alice McKenzie"
	second := sampleRecord(2)
	second.Name = "Bob Smith"
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	got, err := s.Find(ctx, domain.Filter{}.SubstringCI("name", "mckenzie"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].PatientID)
}

func TestMemoryStore_Find_EqualityConjunction(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := sampleRecord(1)
	second := sampleRecord(2)
	second.OverallExp = 1
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	got, err := s.Find(ctx, domain.Filter{}.Eq("overall_exp", 4).Eq("doc_involvement", "yes"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].PatientID)
}

func TestMemoryStore_Update_SparsePatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, sampleRecord(5)))

	modified, err := s.UpdateByPatientID(ctx, 5, map[string]interface{}{"age": 40})
	require.NoError(t, err)
	assert.Equal(t, int64(1), modified)

	got, err := s.FindByPatientID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Age)
	assert.Equal(t, "Jordan Lee", got.Name, "fields outside the patch must be untouched")
}

func TestMemoryStore_Update_Missing(t *testing.T) {
	s := NewMemoryStore()

	modified, err := s.UpdateByPatientID(context.Background(), 123, map[string]interface{}{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), modified)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, sampleRecord(3)))

	deleted, err := s.DeleteByPatientID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = s.DeleteByPatientID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted, "second delete must report zero, not error")
}

func TestMemoryStore_Count(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for id := 1; id <= 3; id++ {
		rec := sampleRecord(id)
		if id == 3 {
			rec.DocInvolvement = "no"
		}
		require.NoError(t, s.Insert(ctx, rec))
	}

	n, err := s.Count(ctx, domain.Filter{}.Eq("doc_involvement", "yes"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
