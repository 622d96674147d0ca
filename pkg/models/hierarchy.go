package models

// FolderSummary is one folder of the full-hierarchy summary used for searching.
type FolderSummary struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Label      string           `json:"label,omitempty"`
	FolderType string           `json:"folderType"`
	Children   []*FolderSummary `json:"children,omitempty"`
	TaskNames  []string         `json:"taskNames,omitempty"`
}

// TopicEntityUpdate is the live-update topic carrying entity changes.
const TopicEntityUpdate = "entity.update"

// EventSummary lists the entities touched by an event
type EventSummary struct {
	EntityType EntityType `json:"entityType"`
	IDs        []string   `json:"ids"`
}

// Event is a message delivered by the live-update channel.
type Event struct {
	ID          string       `json:"id,omitempty"`
	Topic       string       `json:"topic"`
	Project     string       `json:"project,omitempty"`
	User        string       `json:"user,omitempty"`
	Description string       `json:"description,omitempty"`
	Summary     EventSummary `json:"summary"`
}
