package entity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshot is the on-disk representation of the entity store
type snapshot struct {
	Version      string             `json:"version"`
	SavedAt      time.Time          `json:"saved_at"`
	Providers    []*ServiceProvider `json:"providers"`
	Tenants      []*Tenant          `json:"tenants"`
	Participants []*Participant     `json:"participants"`
	Dataspaces   []*Dataspace       `json:"dataspaces"`
}

// SaveSnapshot writes the current store contents to path as JSON. The write
// goes through a temp file and rename so a crash never leaves a truncated
// snapshot behind.
func (s *MemoryStore) SaveSnapshot(path string) error {
	s.mu.RLock()
	snap := snapshot{
		Version: "1.0",
		SavedAt: time.Now(),
	}
	for _, p := range s.providers {
		cp := *p
		snap.Providers = append(snap.Providers, &cp)
	}
	for _, t := range s.tenants {
		snap.Tenants = append(snap.Tenants, t.Clone())
	}
	for _, p := range s.participants {
		snap.Participants = append(snap.Participants, p.Clone())
	}
	for _, d := range s.dataspaces {
		cp := *d
		snap.Dataspaces = append(snap.Dataspaces, &cp)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entity snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write entity snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace entity snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot replaces the store contents from a JSON snapshot at path.
// A missing file is not an error; the store simply starts empty.
func (s *MemoryStore) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read entity snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse entity snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.providers = make(map[string]*ServiceProvider, len(snap.Providers))
	for _, p := range snap.Providers {
		s.providers[p.ID] = p
	}
	s.tenants = make(map[string]*Tenant, len(snap.Tenants))
	for _, t := range snap.Tenants {
		s.tenants[t.ID] = t
	}
	s.participants = make(map[string]*Participant, len(snap.Participants))
	for _, p := range snap.Participants {
		s.participants[p.ID] = p
	}
	s.dataspaces = make(map[string]*Dataspace, len(snap.Dataspaces))
	for _, d := range snap.Dataspaces {
		s.dataspaces[d.ID] = d
	}
	return nil
}
