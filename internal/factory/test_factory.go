package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/assassins-go/internal/dependencies/mocks"
	"github.com/mcoot/assassins-go/internal/services/retry"
	"github.com/mcoot/assassins-go/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockIDs    *mocks.MockIDGenerator
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The clock steps forward one second per read so records order by creation.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewSteppingMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.Second)
	mockRandom := mocks.NewMockRandom()
	mockIDs := mocks.NewMockIDGenerator("id")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app := newWithDependencies(store, mockClock, mockRandom, mockIDs, retry.DefaultPolicy(), logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockIDs:    mockIDs,
	}
}
