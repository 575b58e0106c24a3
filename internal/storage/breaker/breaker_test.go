package breaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
	"github.com/riturajsingh8919/anti-romantic/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestStorage_PassesThrough(t *testing.T) {
	inner := memory.New("")
	s := Wrap(inner, testConfig("pass"), testLogger())

	res, err := s.Upload(context.Background(), &storage.UploadInput{Kind: domain.KindImage, Data: strings.NewReader("x")})
	require.NoError(t, err)

	ok, err := s.Destroy(context.Background(), res.ExternalID, domain.KindImage)
	require.NoError(t, err)
	assert.True(t, ok)

	// A negative answer is not a failure.
	for i := 0; i < 5; i++ {
		ok, err = s.Destroy(context.Background(), "missing", domain.KindImage)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
}

func TestStorage_TripsAndRecovers(t *testing.T) {
	inner := memory.New("")
	inner.Put("pim/a", domain.KindImage)
	inner.FailDestroy("pim/a", errors.New("503 from media service"))
	s := Wrap(inner, testConfig("trip"), testLogger())

	for i := 0; i < 3; i++ {
		_, err := s.Destroy(context.Background(), "pim/a", domain.KindImage)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	_, err := s.Destroy(context.Background(), "pim/a", domain.KindImage)
	assert.ErrorIs(t, err, ErrOpen)

	inner.FailDestroy("pim/a", nil)
	time.Sleep(80 * time.Millisecond)

	ok, err := s.Destroy(context.Background(), "pim/a", domain.KindImage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, gobreaker.StateClosed, s.State())
}
