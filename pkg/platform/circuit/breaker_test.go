package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// step is one Record call and the breaker state expected after it.
type step struct {
	fail     bool
	wantOpen bool
	changed  bool
}

func TestBreakerSequences(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the failure threshold",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true},
				{fail: true},
				{fail: true, wantOpen: true, changed: true},
				{fail: true, wantOpen: true},
			},
		},
		{
			name: "success before the threshold restarts the count",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{fail: true},
				{fail: false},
				{fail: true},
				{fail: true, wantOpen: true, changed: true},
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpen: true, changed: true},
				{fail: false, wantOpen: true},
				{fail: false, changed: true},
			},
		},
		{
			name: "failure while open restarts recovery",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpen: true, changed: true},
				{fail: false, wantOpen: true},
				{fail: true, wantOpen: true},
				{fail: false, wantOpen: true},
				{fail: false, changed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("failure-window", tt.opts...)
			for i, st := range tt.steps {
				if st.fail {
					useFallback, change := b.RecordFailure()
					assert.Equal(t, st.wantOpen, useFallback, "step %d fallback", i)
					assert.Equal(t, st.changed, change.Opened, "step %d opened", i)
				} else {
					usePrimary, change := b.RecordSuccess()
					assert.Equal(t, !st.wantOpen, usePrimary, "step %d primary", i)
					assert.Equal(t, st.changed, change.Closed, "step %d closed", i)
				}
				assert.Equal(t, st.wantOpen, b.IsOpen(), "step %d state", i)
			}
		})
	}
}

func TestBreakerDefaultsAndReset(t *testing.T) {
	b := New("failure-window", WithFailureThreshold(0))
	assert.Equal(t, "failure-window", b.Name())
	assert.Equal(t, "closed", b.State().String())

	for range 5 {
		b.RecordFailure()
	}
	assert.Equal(t, "open", b.State().String(), "non-positive thresholds keep the default of 5")

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}
