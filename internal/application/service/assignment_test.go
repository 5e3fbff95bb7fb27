package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAct(t *testing.T) {
	tests := []struct {
		name         string
		roles        []string
		requiredRole string
		want         bool
	}{
		{name: "unrestricted step", roles: nil, requiredRole: "", want: true},
		{name: "role held", roles: []string{"HR", "Finance"}, requiredRole: "HR", want: true},
		{name: "role missing", roles: []string{"Finance"}, requiredRole: "HR", want: false},
		{name: "no roles at all", roles: nil, requiredRole: "HR", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canAct(tt.roles, tt.requiredRole))
		})
	}
}
