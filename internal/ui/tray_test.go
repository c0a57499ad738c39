package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionsLabel(t *testing.T) {
	assert.Equal(t, "0 sessions", sessionsLabel(0))
	assert.Equal(t, "1 session", sessionsLabel(1))
	assert.Equal(t, "12 sessions", sessionsLabel(12))
}

func TestUpdateSessionCount_BeforeReady(t *testing.T) {
	tray := NewTray(TrayConfig{Addr: "127.0.0.1:5000"})

	tray.UpdateSessionCount(3)

	assert.Equal(t, 3, tray.sessions)
	assert.Nil(t, tray.sessionsItem)
}
