package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	name := ObjectName("req-1", "Policy Scan.PDF", now)

	assert.True(t, strings.HasPrefix(name, "evidence/req-1/2026/03/09/"), name)
	assert.True(t, strings.HasSuffix(name, ".pdf"), name)
	assert.NotEqual(t, name, ObjectName("req-1", "Policy Scan.PDF", now))
}

func TestEvidenceStore_Unconfigured(t *testing.T) {
	s, err := NewEvidenceStore(Config{Bucket: "evidence"})
	require.NoError(t, err)
	assert.False(t, s.Configured())

	ctx := context.Background()
	assert.NoError(t, s.EnsureBucket(ctx))

	_, err = s.Put(ctx, "req", "a.pdf", strings.NewReader("x"), 1, "application/pdf")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.PresignedURL(ctx, "k", "a.pdf", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, s.Remove(ctx, "k"), ErrNotConfigured)
}
