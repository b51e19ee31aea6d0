package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	t.Run("nil ask service returns error", func(t *testing.T) {
		ports := &Ports{}
		assert.ErrorIs(t, ports.Validate(), ErrMissingAskService)
	})

	t.Run("ask set is valid", func(t *testing.T) {
		ports := &Ports{Ask: &mockAskService{}}
		assert.NoError(t, ports.Validate())
	})
}
