package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOperator_DefaultState(t *testing.T) {
	o := NewOperator(1, 10)
	require.Equal(t, StateMainMenu, o.State)
	require.Equal(t, int64(1), o.ID)
	require.Equal(t, int64(10), o.ChatID)
	require.Empty(t, o.SessionID)
}

func TestOperator_SetState(t *testing.T) {
	o := NewOperator(1, 10)
	o.SetState(StateAwaitingPhoto)
	require.Equal(t, StateAwaitingPhoto, o.State)
}
