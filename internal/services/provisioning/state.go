package provisioning

import (
	"dataspace-gateway/internal/clients/tenants"
)

// ContextState is the typed result of inspecting a profile's provisioning
// state. Ready is false until the external system has reported a nonempty
// context id; that is the expected steady state while provisioning runs, not
// a failure.
type ContextState struct {
	Ready     bool
	ContextID string
}

// contextStateFromProfile extracts the participant context id from the
// profile's free-form property bag. The fragile key-path traversal lives
// here and nowhere else: a missing property, a property of the wrong shape,
// or an empty id all read as not-ready.
func contextStateFromProfile(profile *tenants.ParticipantProfile) ContextState {
	if profile == nil || profile.Properties == nil {
		return ContextState{}
	}

	state, ok := profile.Properties[provisioningStateKey].(map[string]interface{})
	if !ok {
		return ContextState{}
	}
	contextID, ok := state[contextIDKey].(string)
	if !ok || contextID == "" {
		return ContextState{}
	}
	return ContextState{Ready: true, ContextID: contextID}
}
