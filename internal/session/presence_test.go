package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceManager_UpdateAndRemove(t *testing.T) {
	pm := NewPresenceManager()

	pm.Update("user_a", &PresencePayload{Stage: StageRig, DisplayName: "Ada"})
	pm.Update("user_b", &PresencePayload{Stage: StageAnimate, DisplayName: "Ben"})

	all := pm.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, StageRig, all["user_a"].Stage)

	pm.Remove("user_a")
	all = pm.GetAll()
	require.Len(t, all, 1)
	assert.Contains(t, all, "user_b")
}

func TestPresenceManager_UpdateReplaces(t *testing.T) {
	pm := NewPresenceManager()

	pm.Update("user_a", &PresencePayload{Stage: StageCutout})
	pm.Update("user_a", &PresencePayload{
		Stage:  StageParts,
		Cursor: &CursorPos{X: 10, Y: 20},
	})

	all := pm.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, StageParts, all["user_a"].Stage)
	require.NotNil(t, all["user_a"].Cursor)
	assert.Equal(t, 10.0, all["user_a"].Cursor.X)
}

func TestPresenceManager_GetAllIsACopy(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("user_a", &PresencePayload{Stage: StageRig})

	all := pm.GetAll()
	delete(all, "user_a")

	assert.Len(t, pm.GetAll(), 1)
}

func TestPresenceManager_StateMessage(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("user_a", &PresencePayload{Stage: StageAnimate, DisplayName: "Ada"})

	msg := pm.StateMessage()
	require.NotNil(t, msg)
	assert.Equal(t, TypePresenceState, msg.Type)

	var state PresenceStatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	require.Contains(t, state.Presences, "user_a")
	assert.Equal(t, "Ada", state.Presences["user_a"].DisplayName)
}

func TestPresenceManager_EmptyStateMessage(t *testing.T) {
	pm := NewPresenceManager()

	msg := pm.StateMessage()
	require.NotNil(t, msg)

	var state PresenceStatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Empty(t, state.Presences)
}
