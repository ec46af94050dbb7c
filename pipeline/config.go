package pipeline

// Config carries the pipeline's policy constants. The defaults mirror the
// behavior the stages were tuned against; every value is overridable so
// deployments are not stuck with hard-coded policy.
type Config struct {
	// RevisionLimit caps how many times the critique stage may send a draft
	// back for revision within one run.
	RevisionLimit int

	// CompactionThreshold is the history length at which the compaction
	// stage starts maintaining a rolling summary.
	CompactionThreshold int

	// HierarchicalThreshold is the history length at which compaction
	// switches to two-level summarization (chunk, then fold), keeping work
	// per run bounded regardless of total history length.
	HierarchicalThreshold int

	// ChunkSize is the number of turns per chunk in hierarchical
	// compaction.
	ChunkSize int

	// RecentWindow is how many recent turns are quoted verbatim in stage
	// prompts.
	RecentWindow int

	// KeepRecent is how many of the newest turns compaction leaves out of
	// the summary.
	KeepRecent int

	// SearchResults is the maximum number of web search hits retrieved.
	SearchResults int

	// VectorTopK is how many documents internal retrieval fetches.
	VectorTopK int

	// DefaultLanguage is the translation target when the router selects the
	// translate tool without naming a language.
	DefaultLanguage string

	// MaxSteps bounds engine execution as a safety net; the revision
	// ceiling already guarantees termination well below it.
	MaxSteps int
}

// DefaultConfig returns the standard policy constants.
func DefaultConfig() Config {
	return Config{
		RevisionLimit:         2,
		CompactionThreshold:   10,
		HierarchicalThreshold: 100,
		ChunkSize:             20,
		RecentWindow:          6,
		KeepRecent:            4,
		SearchResults:         5,
		VectorTopK:            4,
		DefaultLanguage:       "Chinese",
		MaxSteps:              25,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RevisionLimit <= 0 {
		c.RevisionLimit = def.RevisionLimit
	}
	if c.CompactionThreshold <= 0 {
		c.CompactionThreshold = def.CompactionThreshold
	}
	if c.HierarchicalThreshold <= 0 {
		c.HierarchicalThreshold = def.HierarchicalThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = def.RecentWindow
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = def.KeepRecent
	}
	if c.SearchResults <= 0 {
		c.SearchResults = def.SearchResults
	}
	if c.VectorTopK <= 0 {
		c.VectorTopK = def.VectorTopK
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = def.DefaultLanguage
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = def.MaxSteps
	}
	return c
}
