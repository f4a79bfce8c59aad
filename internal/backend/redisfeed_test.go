package backend

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/applypilot/internal/types"
)

func TestChannelName(t *testing.T) {
	owner, err := types.ParseIdentity("a2cb02de-2d65-47b2-b7df-3b78c5b95c27")
	assert.NoError(t, err)

	name := ChannelName(owner, types.KindResume)

	assert.Equal(t, "applypilot:a2cb02de-2d65-47b2-b7df-3b78c5b95c27:resume", name)
}

func TestChannelName_DistinctPerKindAndOwner(t *testing.T) {
	a := types.Identity(uuid.New())
	b := types.Identity(uuid.New())

	assert.NotEqual(t, ChannelName(a, types.KindProfile), ChannelName(a, types.KindResume))
	assert.NotEqual(t, ChannelName(a, types.KindProfile), ChannelName(b, types.KindProfile))
}
