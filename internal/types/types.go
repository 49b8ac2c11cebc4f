package types

// Cut is a time range, in seconds, that the render module removes.
type Cut struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type CutList []Cut

type GeneratorStats struct {
	LenPreCut  float64 `json:"len_pre_cut"`
	LenPostCut float64 `json:"len_post_cut"`
}

type Generation struct {
	Cuts  CutList
	Stats GeneratorStats
}

// Argument is one command line option a module exposes.
// Short is zero when the option has no short form.
type Argument struct {
	Short       byte
	Long        string
	Description string
	Required    bool
	IsFlag      bool
}

// ArgumentResult is a resolved option value. Flags carry "true".
type ArgumentResult struct {
	Long  string
	Value string
}

type FileResult struct {
	Input  string
	Output string
	Stats  GeneratorStats
}
