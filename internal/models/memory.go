package models

// Memory is the core domain entity stored in SQLite. Field names mirror the
// dual-trace consolidation model: WorkingStrength/CoreStrength are the two
// masses r1/r2 that consolidate transfers between over time.
type Memory struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	MemoryType  MemoryType `json:"memoryType"`
	Importance  float64    `json:"importance"`
	Layer       Layer      `json:"layer"`
	Pinned      bool       `json:"pinned"`
	Source      string     `json:"source,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	ContentHash string     `json:"-"`

	WorkingStrength float64 `json:"workingStrength"`
	CoreStrength    float64 `json:"coreStrength"`
	Stability       float64 `json:"stability"`

	CreatedAt      float64 `json:"createdAt"`
	LastAccessedAt float64 `json:"lastAccessedAt"`
	AccessCount    int     `json:"accessCount"`

	// ContradictedBy holds the id of the memory that superseded this one, if
	// any. Set by UpdateMemory (spec.md §4.8); attenuates reliability and
	// subtracts a flat penalty from activation while still present.
	ContradictedBy *string `json:"contradictedBy,omitempty"`
	// Contradicts holds the id of the memory this one replaces, the mirror
	// of ContradictedBy set on the newly created memory.
	Contradicts *string `json:"contradicts,omitempty"`

	// Entities is the ordered set of entity tokens extracted from Content at
	// add-time, used for graph expansion during recall (spec.md §4.7 step 3).
	Entities []string `json:"entities,omitempty"`
}

// AccessRecord is one retrieval event for a memory; used only by the
// base-level (recency/frequency) activation term (spec.md §4.1).
type AccessRecord struct {
	MemoryID   string  `json:"memoryId"`
	AccessedAt float64 `json:"accessedAt"`
}
