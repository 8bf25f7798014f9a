package jsonstore

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactSaveAndGet(t *testing.T) {
	s, err := NewArtifactStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	id, err := s.Save("agent-1", "plan", map[string]interface{}{"goal": "ship it"})
	require.NoError(t, err)

	art, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, art.ArtifactID)
	assert.Equal(t, "agent-1", art.AgentID)
	assert.Equal(t, "plan", art.ArtifactType)
	content := art.Content.(map[string]interface{})
	assert.Equal(t, "ship it", content["goal"])
}

func TestArtifactGetRejectsBogusIDs(t *testing.T) {
	s, err := NewArtifactStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	for _, id := range []string{"missing", "../../etc/passwd", ""} {
		_, err := s.Get(id)
		assert.ErrorIs(t, err, ErrArtifactNotFound)
	}

	// Well-formed but unknown uuid.
	_, err = s.Get("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}
