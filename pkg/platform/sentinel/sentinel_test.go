package sentinel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "amlguard/pkg/domain-errors"
)

func TestMessagesCoded(t *testing.T) {
	msgs := Messages{NotFound: "entity not found", Conflict: "registration number is already registered"}

	tests := []struct {
		name string
		err  error
		code dErrors.Code
		msg  string
	}{
		{"wrapped not found", fmt.Errorf("entity e-1: %w", ErrNotFound), dErrors.CodeNotFound, "entity not found"},
		{"wrapped conflict", fmt.Errorf("registration RN-1: %w", ErrConflict), dErrors.CodeConflict, "registration number is already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coded := msgs.Coded(tt.err)
			require.NotNil(t, coded)
			assert.Equal(t, tt.code, coded.Code)
			assert.Equal(t, tt.msg, coded.Message)
			assert.NotContains(t, coded.Error(), "e-1", "store detail stays out of the client message")
		})
	}
}

func TestMessagesCodedIgnoresOtherErrors(t *testing.T) {
	msgs := Messages{NotFound: "alert not found"}
	assert.Nil(t, msgs.Coded(errors.New("connection reset")))
	assert.Nil(t, msgs.Coded(dErrors.New(dErrors.CodeValidation, "bad ip")))
	assert.Nil(t, msgs.Coded(nil))
}
