package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
)

func TestIsTransitionAllowed(t *testing.T) {
	assert.True(t, isTransitionAllowed(domain.StateMainMenu, domain.StateAddingEventTitle))
	assert.True(t, isTransitionAllowed(domain.StateAddingEventTitle, domain.StateAddingEventDate))
	assert.False(t, isTransitionAllowed(domain.StateAddingEventTitle, domain.StateAddingTaskPriority))
}

func TestIsTransitionAllowedSelfLoopAndReset(t *testing.T) {
	assert.True(t, isTransitionAllowed(domain.StateAddingEventDate, domain.StateAddingEventDate))
	assert.True(t, isTransitionAllowed(domain.StateClarifyingIntent, domain.StateMainMenu))
}
