package entity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataspace-gateway/internal/common"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.CreateProvider(&ServiceProvider{ID: "sp-1", Name: "operator"}))
	require.NoError(t, store.CreateTenant(&Tenant{ID: "t-1", ProviderID: "sp-1", Name: "acme"}))
	require.NoError(t, store.CreateParticipant(&Participant{
		ID:         "p-1",
		TenantID:   "t-1",
		Identifier: "did:web:acme.example.com",
	}))
	return store
}

func TestCreateParticipantRequiresTenant(t *testing.T) {
	store := NewMemoryStore()
	err := store.CreateParticipant(&Participant{ID: "p-1", TenantID: "missing"})
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrNotFound))
}

func TestGetParticipantReturnsIsolatedCopy(t *testing.T) {
	store := seedStore(t)

	first, err := store.GetParticipant("p-1")
	require.NoError(t, err)
	first.Identifier = "mutated"
	first.Files = append(first.Files, UploadedFile{FileID: "f-1"})

	second, err := store.GetParticipant("p-1")
	require.NoError(t, err)
	assert.Equal(t, "did:web:acme.example.com", second.Identifier)
	assert.Empty(t, second.Files)
}

func TestUpdateParticipantAppliesMutation(t *testing.T) {
	store := seedStore(t)

	updated, err := store.UpdateParticipant("p-1", func(p *Participant) error {
		p.CorrelationID = "ext-1"
		p.Files = append(p.Files, UploadedFile{FileID: "f-1", Filename: "a.txt"})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", updated.CorrelationID)

	stored, err := store.GetParticipant("p-1")
	require.NoError(t, err)
	require.Len(t, stored.Files, 1)
	assert.Equal(t, "a.txt", stored.Files[0].Filename)
}

func TestUpdateParticipantMutationErrorLeavesStateUntouched(t *testing.T) {
	store := seedStore(t)

	_, err := store.UpdateParticipant("p-1", func(p *Participant) error {
		return common.ErrInvalidArgumentError("rejected")
	})
	require.Error(t, err)
}

func TestFindParticipantByContextID(t *testing.T) {
	store := seedStore(t)

	_, err := store.FindParticipantByContextID("pcx-1")
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrNotFound))

	_, err = store.UpdateParticipant("p-1", func(p *Participant) error {
		p.ParticipantContextID = "pcx-1"
		return nil
	})
	require.NoError(t, err)

	found, err := store.FindParticipantByContextID("pcx-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", found.ID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := seedStore(t)
	require.NoError(t, store.CreateDataspace(&Dataspace{ID: "ds-1", Name: "mobility"}))
	_, err := store.UpdateParticipant("p-1", func(p *Participant) error {
		p.ParticipantContextID = "pcx-1"
		p.Credentials = &ClientCredentials{ClientID: "pcx-1", ClientSecret: "s"}
		p.Agents = []VirtualParticipantAgent{{Type: AgentControlPlane, ExternalType: "control-plane", State: "RUNNING"}}
		return nil
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, store.SaveSnapshot(path))

	restored := NewMemoryStore()
	require.NoError(t, restored.LoadSnapshot(path))

	participant, err := restored.GetParticipant("p-1")
	require.NoError(t, err)
	assert.Equal(t, "pcx-1", participant.ParticipantContextID)
	require.NotNil(t, participant.Credentials)
	require.Len(t, participant.Agents, 1)
	assert.Equal(t, AgentControlPlane, participant.Agents[0].Type)

	dataspaces, err := restored.ListDataspaces()
	require.NoError(t, err)
	assert.Len(t, dataspaces, 1)
}

func TestLoadSnapshotMissingFileStartsEmpty(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.LoadSnapshot(filepath.Join(t.TempDir(), "absent.json")))
	participants, err := store.ListParticipants("")
	require.NoError(t, err)
	assert.Empty(t, participants)
}
