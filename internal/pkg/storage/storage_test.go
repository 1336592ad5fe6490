package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	_, _, err := m.Get(ctx, "seed/seed.txt")
	require.ErrorIs(t, err, ErrObjectNotFound)

	info, err := m.Put(ctx, "seed/seed.txt", []byte("one"), "text/plain")
	require.NoError(t, err)
	require.EqualValues(t, 3, info.Size)
	require.Equal(t, "f97c5d29941bfb1b2fdab0874906ab82", info.ETag)

	_, err = m.Put(ctx, "seed/seed.txt", []byte("two"), "text/plain")
	require.NoError(t, err)

	data, info, err := m.Get(ctx, "seed/seed.txt")
	require.NoError(t, err)
	require.Equal(t, "two", string(data))
	require.Equal(t, "text/plain", info.ContentType)
	require.Equal(t, m.now(), info.UpdatedAt)

	data[0] = 'x'
	again, _, err := m.Get(ctx, "seed/seed.txt")
	require.NoError(t, err)
	require.Equal(t, "two", string(again))

	_, err = m.Stat(ctx, "other")
	require.ErrorIs(t, err, ErrObjectNotFound)

	_, err = m.Put(ctx, "big", make([]byte, MaxObjectSize+1), "")
	require.ErrorIs(t, err, ErrObjectTooLarge)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Stat(cancelled, "seed/seed.txt")
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, m.Close())
}

func TestReadAllLimited(t *testing.T) {
	data, err := readAllLimited(strings.NewReader("abc"))
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))

	_, err = readAllLimited(strings.NewReader(strings.Repeat("a", MaxObjectSize+1)))
	require.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	s, err := NewFromDriver(ctx, " Memory ", FactoryOptions{})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	s, err = NewFromDriver(ctx, "", FactoryOptions{})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	_, err = NewFromDriver(ctx, "ftp", FactoryOptions{})
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(ctx, DriverMinIO, FactoryOptions{MinIO: MinIOOptions{Endpoint: "localhost:9000"}})
	require.ErrorIs(t, err, ErrBucketRequired)

	s, err = NewFromDriver(ctx, DriverMinIO, FactoryOptions{
		Bucket: "pkitotp",
		MinIO:  MinIOOptions{Endpoint: "localhost:9000"},
	})
	require.NoError(t, err)
	require.IsType(t, &MinIO{}, s)
	require.Equal(t, "pkitotp", s.(*MinIO).bucket)
}
