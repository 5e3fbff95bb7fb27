package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Action
		wantErr bool
	}{
		{name: "approve lowercase", raw: "approve", want: ActionApprove},
		{name: "approve uppercase", raw: "APPROVE", want: ActionApprove},
		{name: "approve mixed case", raw: "Approve", want: ActionApprove},
		{name: "complete", raw: "complete", want: ActionComplete},
		{name: "reject", raw: "reject", want: ActionReject},
		{name: "surrounding whitespace", raw: "  reject  ", want: ActionReject},
		{name: "unknown token", raw: "escalate", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAction)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAction_Advances(t *testing.T) {
	assert.True(t, ActionApprove.Advances())
	assert.True(t, ActionComplete.Advances())
	assert.False(t, ActionReject.Advances())
}
