package errors

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	base := NewStd("connection refused")
	ee := New(base).
		Component("artwork").
		Category(CategoryNetwork).
		Priority(PriorityHigh).
		Context("provider", "staticart").
		Build()

	assert.Equal(t, "connection refused", ee.Error())
	assert.Equal(t, "artwork", ee.GetComponent())
	assert.Equal(t, string(CategoryNetwork), ee.GetCategory())
	assert.Equal(t, PriorityHigh, ee.GetPriority())
	assert.Equal(t, "staticart", ee.GetContext()["provider"])
	assert.True(t, Is(ee, base), "enhanced error unwraps to the original")
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := Newf("bad state: %d", 42).Build()
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, string(CategoryGeneric), ee.GetCategory())
	assert.Equal(t, "bad state: 42", ee.Error())
}

func TestCategoryMatching(t *testing.T) {
	t.Parallel()

	a := New(NewStd("a")).Category(CategoryTimeout).Build()
	b := New(NewStd("b")).Category(CategoryTimeout).Build()
	c := New(NewStd("c")).Category(CategoryNetwork).Build()

	assert.True(t, Is(a, b), "errors with the same category match")
	assert.False(t, Is(a, c))
}

type recordingReporter struct {
	mu     sync.Mutex
	errors []*EnhancedError
}

func (r *recordingReporter) Report(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, ee)
}

func TestReporterReceivesBuiltErrors(t *testing.T) {
	rep := &recordingReporter{}
	SetReporter(rep)
	defer SetReporter(nil)

	ee := New(NewStd("boom")).Component("artwork").Build()

	rep.mu.Lock()
	defer rep.mu.Unlock()
	require.Len(t, rep.errors, 1)
	assert.Same(t, ee, rep.errors[0])
	assert.True(t, ee.IsReported())
}
