package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentcore/runtime/internal/worker"
	"github.com/agentcore/runtime/pkg/models"
)

// conversationFile is the on-disk shape `save`/`load` and delegate's
// --conversation flag persist: a named worker's full entry log, restorable
// into a fresh worker's history (spec.md §4.2, §6).
type conversationFile struct {
	Name    string         `json:"name"`
	Entries []models.Entry `json:"entries"`
}

func loadConversation(path string) (conversationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return conversationFile{}, fmt.Errorf("agentrun: reading %s: %w", path, err)
	}
	var cf conversationFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return conversationFile{}, fmt.Errorf("agentrun: parsing %s: %w", path, err)
	}
	return cf, nil
}

func saveConversation(path string, w *worker.Worker) error {
	cf := conversationFile{Name: w.Name, Entries: w.History.Entries()}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("agentrun: encoding conversation: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
