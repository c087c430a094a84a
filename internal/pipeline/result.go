package pipeline

import (
	"time"

	"figmagen/internal/preprocess"
)

// ManifestPath is the run summary emitted last.
const ManifestPath = "manifest.json"

type PageResult struct {
	NodeID     string   `json:"nodeId"`
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Components []string `json:"components"`
}

type SkippedFrame struct {
	NodeID string `json:"nodeId"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type AssetEntry struct {
	Key         string `json:"key"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size"`
}

// Result summarises a run and is persisted as manifest.json.
type Result struct {
	RunID       string               `json:"runId"`
	FileName    string               `json:"fileName,omitempty"`
	StartNodeID string               `json:"startNodeId,omitempty"`
	Pages       []PageResult         `json:"pages"`
	Skipped     []SkippedFrame       `json:"skipped,omitempty"`
	OtherNodes  []string             `json:"otherNodes,omitempty"`
	RegistryIDs []string             `json:"registryIds"`
	Assets      []AssetEntry         `json:"assets"`
	Files       []string             `json:"files"`
	Preserved   []string             `json:"preserved,omitempty"`
	StartedAt   time.Time            `json:"startedAt"`
	FinishedAt  time.Time            `json:"finishedAt"`
	Registry    *preprocess.Registry `json:"-"`
}
