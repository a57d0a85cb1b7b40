package models

// MemoryType classifies what kind of knowledge a memory represents.
type MemoryType string

const (
	MemoryTypeFactual    MemoryType = "factual"
	MemoryTypeEpisodic   MemoryType = "episodic"
	MemoryTypeRelational MemoryType = "relational"
	MemoryTypeEmotional  MemoryType = "emotional"
	MemoryTypeProcedural MemoryType = "procedural"
	MemoryTypeOpinion    MemoryType = "opinion"
)

var ValidMemoryTypes = map[MemoryType]bool{
	MemoryTypeFactual:    true,
	MemoryTypeEpisodic:   true,
	MemoryTypeRelational: true,
	MemoryTypeEmotional:  true,
	MemoryTypeProcedural: true,
	MemoryTypeOpinion:    true,
}

func (t MemoryType) IsValid() bool {
	return ValidMemoryTypes[t]
}

// InitialWorkingStrength and InitialStability are the per-type seed values
// from the consolidation init table (spec.md §4.5). Used by add() to seed a
// new memory's working_strength/stability before any access has occurred.
var InitialWorkingStrength = map[MemoryType]float64{
	MemoryTypeEpisodic:   1.0,
	MemoryTypeFactual:    2.0,
	MemoryTypeRelational: 2.0,
	MemoryTypeEmotional:  3.0,
	MemoryTypeOpinion:    1.5,
	MemoryTypeProcedural: 2.5,
}

var InitialStability = map[MemoryType]float64{
	MemoryTypeEpisodic:   1.0,
	MemoryTypeFactual:    3.0,
	MemoryTypeRelational: 4.0,
	MemoryTypeEmotional:  6.0,
	MemoryTypeOpinion:    2.0,
	MemoryTypeProcedural: 10.0,
}

// DefaultReliability lists the per-type metacognitive reliability priors
// (spec.md §4.6), before contradiction attenuation. It mirrors
// config.Default().Confidence.DefaultReliability; the confidence package
// reads the config map, not this one.
var DefaultReliability = map[MemoryType]float64{
	MemoryTypeFactual:    0.85,
	MemoryTypeEpisodic:   0.90,
	MemoryTypeRelational: 0.75,
	MemoryTypeEmotional:  0.95,
	MemoryTypeProcedural: 0.90,
	MemoryTypeOpinion:    0.60,
}

// Layer is the derived, materialized storage tier of a memory (spec.md §3.1).
type Layer string

const (
	LayerWorking Layer = "working"
	LayerCore    Layer = "core"
	LayerArchive Layer = "archive"
)

func (l Layer) IsValid() bool {
	return l == LayerWorking || l == LayerCore || l == LayerArchive
}

// HebbianLink is an undirected associative edge between two memories, stored
// as a single row keyed by the canonical pair SourceID <= TargetID
// (spec.md §3.1); both directions are read from that one row. Strength 0
// means "tracking only, not yet formed".
type HebbianLink struct {
	SourceID          string  `json:"sourceId"`
	TargetID          string  `json:"targetId"`
	Strength          float64 `json:"strength"`
	CoactivationCount int     `json:"coactivationCount"`
}

// Entity is one extracted token shared across memories, used for graph
// expansion during recall (spec.md §4.7 step 3, §4.8).
type Entity struct {
	Token string `json:"token"`
}

// SearchResult is the fixed-field record returned by recall (spec.md §6.1,
// §9 "dynamic typing" design note: a concrete type, not an open map).
type SearchResult struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	MemoryType      MemoryType `json:"memoryType"`
	Layer           Layer      `json:"layer"`
	Importance      float64    `json:"importance"`
	Activation      float64    `json:"activation"`
	Strength        float64    `json:"strength"`
	Confidence      float64    `json:"confidence"`
	ConfidenceLabel string     `json:"confidenceLabel"`
	AgeDays         float64    `json:"ageDays"`
}

// AddOptions are the optional parameters to add() beyond content
// (spec.md §6.1).
type AddOptions struct {
	Type        MemoryType
	Importance  *float64
	Source      string
	Tags        []string
	Contradicts string
}

// RecallOptions are the optional parameters to recall() (spec.md §6.1, §4.7).
type RecallOptions struct {
	Limit         int
	Context       []string
	Types         []MemoryType
	Layers        []Layer
	MinConfidence float64
	TimeRangeFrom *float64
	TimeRangeTo   *float64
	GraphExpand   *bool
}

// ConsolidateSummary is the summary-stats result of consolidate()
// (spec.md §6.1).
type ConsolidateSummary struct {
	Processed    int `json:"processed"`
	Replayed     int `json:"replayed"`
	PromotedCore int `json:"promotedCore"`
	Archived     int `json:"archived"`
	Working      int `json:"working"`
}

// ForgetSummary is the count deleted/archived result of forget()
// (spec.md §6.1).
type ForgetSummary struct {
	Deleted  int `json:"deleted"`
	Archived int `json:"archived"`
}

// Stats is the counters result of stats() (spec.md §6.1): totals per
// layer/type and averages.
type Stats struct {
	Total          int                `json:"total"`
	ByLayer        map[Layer]int      `json:"byLayer"`
	ByType         map[MemoryType]int `json:"byType"`
	AvgImportance  float64            `json:"avgImportance"`
	AvgStability   float64            `json:"avgStability"`
	AvgAccessCount float64            `json:"avgAccessCount"`
}
