package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Palette for participant cursors, assigned in join order.
var presenceColors = []string{
	"#e5484d", "#ffb224", "#30a46c", "#0091ff", "#8e4ec6", "#f76808",
}

// PresenceManager tracks live cursors keyed by client ID, so the same
// account in two tabs shows up as two participants.
type PresenceManager struct {
	mu      sync.RWMutex
	entries map[string]*PresencePayload // clientID -> presence
	colors  map[string]string           // clientID -> assigned color
	joined  int
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		entries: make(map[string]*PresencePayload),
		colors:  make(map[string]string),
	}
}

// AssignColor picks a cursor color for a client. Calling it again for the
// same client returns the original choice.
func (pm *PresenceManager) AssignColor(clientID string) string {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if color, ok := pm.colors[clientID]; ok {
		return color
	}
	color := presenceColors[pm.joined%len(presenceColors)]
	pm.joined++
	pm.colors[clientID] = color
	return color
}

func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if color, ok := pm.colors[clientID]; ok {
		p.Color = color
	}
	pm.entries[clientID] = p
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.entries, clientID)
	delete(pm.colors, clientID)
}

func (pm *PresenceManager) Snapshot() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make(map[string]*PresencePayload, len(pm.entries))
	for id, p := range pm.entries {
		out[id] = p
	}
	return out
}

// StateMessage packages every live cursor for a newly joined client.
func (pm *PresenceManager) StateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: pm.Snapshot()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}
