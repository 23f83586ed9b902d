package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "amlguard/pkg/domain-errors"
)

type sample struct {
	FullName string `validate:"notblank,max=10"`
	Email    string `validate:"omitempty,email"`
	Source   string `validate:"ip_or_cidr"`
	Port     int    `validate:"gte=0,lte=65535"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantMsg string
	}{
		{"valid", sample{FullName: "Ada", Source: "10.0.0.0/8"}, ""},
		{"blank name", sample{FullName: "  ", Source: "10.0.0.1"}, "full_name is required"},
		{"long name", sample{FullName: "abcdefghijk", Source: "10.0.0.1"}, "full_name must be at most 10"},
		{"bad email", sample{FullName: "Ada", Email: "nope", Source: "10.0.0.1"}, "email must be a valid email address"},
		{"bad source", sample{FullName: "Ada", Source: "10.0.0.300"}, "source must be a valid IP address"},
		{"bad port", sample{FullName: "Ada", Source: "::1", Port: 70000}, "port is out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestIsIPOrCIDR(t *testing.T) {
	assert.True(t, IsIPOrCIDR("203.0.113.9"))
	assert.True(t, IsIPOrCIDR("2001:db8::/32"))
	assert.False(t, IsIPOrCIDR("example.com"))
	assert.False(t, IsIPOrCIDR(""))
}

func TestVar(t *testing.T) {
	require.NoError(t, Var("ip", "10.0.0.5", "ip"))
	err := Var("ip", "10.0.0", "ip")
	require.Error(t, err)
	assert.Equal(t, "ip is invalid", err.Error())
}
