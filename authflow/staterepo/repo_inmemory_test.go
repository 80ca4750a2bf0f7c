package staterepo_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-search-reporter/authflow/staterepo"
	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
)

func testFlowState() *staterepo.FlowState {
	return &staterepo.FlowState{
		SessionID: "session-1",
		Nonce:     "nonce-1",
		ReturnURL: "/after",
		CreatedAt: time.Now(),
	}
}

func TestRepo_SaveAndConsume(t *testing.T) {
	repo := staterepo.NewInMemoryRepo(0)

	require.NoError(t, repo.Save("state-1", testFlowState()))

	flowState, err := repo.Consume("state-1")
	require.NoError(t, err)
	require.Equal(t, "session-1", flowState.SessionID)
	require.Equal(t, "nonce-1", flowState.Nonce)
	require.Equal(t, "/after", flowState.ReturnURL)
}

func TestRepo_ConsumeIsSingleUse(t *testing.T) {
	repo := staterepo.NewInMemoryRepo(0)

	require.NoError(t, repo.Save("state-1", testFlowState()))

	_, err := repo.Consume("state-1")
	require.NoError(t, err)

	_, err = repo.Consume("state-1")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRepo_ConsumeUnknownState(t *testing.T) {
	repo := staterepo.NewInMemoryRepo(0)

	_, err := repo.Consume("never-saved")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = repo.Consume("")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRepo_ConsumeExpiredState(t *testing.T) {
	repo := staterepo.NewInMemoryRepo(10 * time.Millisecond)

	flowState := testFlowState()
	flowState.CreatedAt = time.Now().Add(-time.Second)
	require.NoError(t, repo.Save("state-1", flowState))

	_, err := repo.Consume("state-1")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRepo_SaveValidation(t *testing.T) {
	repo := staterepo.NewInMemoryRepo(0)

	require.Error(t, repo.Save("", testFlowState()))
	require.Error(t, repo.Save("state-1", nil))
}

// A replayed provider redirect must not race check-then-invalidate: exactly
// one concurrent Consume may win.
func TestRepo_ConcurrentConsumeSingleWinner(t *testing.T) {
	repo := staterepo.NewInMemoryRepo(0)
	require.NoError(t, repo.Save("state-1", testFlowState()))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Consume("state-1"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}
