package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsBothChains(t *testing.T) {
	err := Wrap(ErrIndexUnavailable, context.DeadlineExceeded)
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, ErrIndexUnavailable, Kind(err))

	assert.Nil(t, Wrap(ErrGeneration, nil))
	assert.Same(t, err, Wrap(ErrIndexUnavailable, err))
	assert.Nil(t, Kind(errors.New("plain")))
}

func TestLabels(t *testing.T) {
	tests := []struct {
		label string
		final bool
		known bool
	}{
		{SourceInternalDocs, true, true},
		{SourceExactMatch, true, true},
		{SourceInternalDegraded, true, true},
		{SourceConsentRequest, false, true},
		{SourceSystemError, false, true},
		{"Made Up", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.final, IsFinal(tt.label))
			assert.Equal(t, tt.known, IsKnown(tt.label))
		})
	}

	assert.Equal(t, SourceWebUnverified, Unverified(SourceWebSearch))
	assert.Equal(t, SourceInternalUnverified, Unverified(SourceHighConfidence))
}
