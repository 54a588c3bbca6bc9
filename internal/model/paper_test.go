package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperSubmission_Apply(t *testing.T) {
	var p PaperSubmission

	require.NoError(t, p.Apply(PaperForm{PaperID: "7", ExamDate: "2025-01-01"}, time.UTC))
	assert.Nil(t, p.ExamStartEpochSeconds, "start is meaningless until both date and time are set")

	require.NoError(t, p.Apply(PaperForm{PaperID: "7", ExamDate: "2025-01-01", ExamTime: "00:00"}, time.UTC))
	require.NotNil(t, p.ExamStartEpochSeconds)
	assert.Equal(t, int64(1735689600), *p.ExamStartEpochSeconds)

	require.NoError(t, p.Apply(PaperForm{PaperID: "7", ExamTime: "00:00"}, time.UTC))
	assert.Nil(t, p.ExamStartEpochSeconds)

	assert.Error(t, p.Apply(PaperForm{PaperID: "7", ExamDate: "2025-13-01", ExamTime: "00:00"}, time.UTC))
	assert.Nil(t, p.ExamStartEpochSeconds)
}

func TestPaperSubmission_SetContentReference(t *testing.T) {
	var p PaperSubmission
	p.SetContentReference("Qm123")
	require.NotNil(t, p.ContentReference)
	assert.Equal(t, "Qm123", *p.ContentReference)
}
