package core

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIs(t *testing.T) {
	assert.ErrorIs(t, &EmptyInputError{}, ErrEmptyInput)
	assert.ErrorIs(t, &MissingColumnError{Column: "A"}, ErrMissingColumn)
	assert.ErrorIs(t, &HeaderOutOfRangeError{}, ErrHeaderOutOfRange)
	assert.NotErrorIs(t, &EmptyInputError{}, ErrMissingColumn)
}

func TestMissingColumnError_Message(t *testing.T) {
	assert.Equal(t, `column not found: "A" (line 4)`, (&MissingColumnError{Column: "A", Line: 4}).Error())
	assert.Equal(t, `column not found: "A"`, (&MissingColumnError{Column: "A"}).Error())
}

func TestIssues_ConcurrentReport(t *testing.T) {
	issues := &Issues{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issues.Report(&MissingColumnError{Column: "A"})
		}()
	}
	wg.Wait()

	issues.Report(nil)
	assert.Equal(t, 50, issues.Len())
	assert.Len(t, issues.Messages(), 50)
	assert.True(t, issues.Has(ErrMissingColumn))
	assert.False(t, issues.Has(ErrEmptyInput))
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogReporter(logger).Report(&MissingColumnError{Column: "Amount", Line: 7})

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "code=COL001")
	assert.Contains(t, out, "column=Amount")
	assert.Contains(t, out, "line=7")
}

func TestTee(t *testing.T) {
	a, b := &Issues{}, &Issues{}
	Tee(a, nil, b).Report(errors.New("x"))

	require.Equal(t, 1, a.Len())
	require.Equal(t, 1, b.Len())
}
