package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/patient-feedback-server/internal/domain"
)

// setupMongo starts a disposable MongoDB container and returns a
// connected store. Gated behind FEEDBACK_INTEGRATION so the default
// test run needs no Docker daemon.
func setupMongo(t *testing.T) (*MongoStore, func()) {
	if os.Getenv("FEEDBACK_INTEGRATION") == "" {
		t.Skip("set FEEDBACK_INTEGRATION=1 to run container-backed store tests")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start MongoDB container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	s, err := NewMongoStore(ctx, domain.MongoConfig{
		URI:            fmt.Sprintf("mongodb://%s:%s/", host, port.Port()),
		Database:       "feedback_test",
		Collection:     "Feedback",
		ConnectTimeout: 10 * time.Second,
	}, logger)
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndexes(ctx))

	cleanup := func() {
		_ = s.Close(ctx)
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MongoDB container: %v", err)
		}
	}
	return s, cleanup
}

func TestMongoStore_RoundTrip(t *testing.T) {
	s, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	rec := sampleRecord(101)

	require.NoError(t, s.Insert(ctx, rec))

	got, err := s.FindByPatientID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, *rec, *got)

	// Unique index rejects the second insert for the same patient
	err = s.Insert(ctx, sampleRecord(101))
	assert.ErrorIs(t, err, domain.ErrDuplicateRecord)
}

func TestMongoStore_FilterAndMutate(t *testing.T) {
	s, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	first := sampleRecord(1)
	first.Name = "Alice McKenzie"
	second := sampleRecord(2)
	second.Name = "Bob Smith"
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	// Case-insensitive literal substring on name
	got, err := s.Find(ctx, domain.Filter{}.SubstringCI("name", "MCKENZIE"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].PatientID)

	n, err := s.Count(ctx, domain.Filter{}.Eq("overall_exp", 4))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	modified, err := s.UpdateByPatientID(ctx, 2, map[string]interface{}{"age": 61})
	require.NoError(t, err)
	assert.Equal(t, int64(1), modified)

	updated, err := s.FindByPatientID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 61, updated.Age)
	assert.Equal(t, "Bob Smith", updated.Name)

	deleted, err := s.DeleteByPatientID(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
