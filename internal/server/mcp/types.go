package mcp

// TranscribeArgs is the input of transcribe_audio.
type TranscribeArgs struct {
	Audio  string `json:"audio" jsonschema:"base64 encoded WAV file, 16-bit PCM"`
	Refine *bool  `json:"refine,omitempty" jsonschema:"run the language model cleanup pass when it is configured (default true)"`
}

// ListModelsArgs is the input of list_models.
type ListModelsArgs struct{}

// RecentArgs is the input of recent_transcripts.
type RecentArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of transcripts, newest first (default 10)"`
}

// TranscriptOutput is the structured result of transcribe_audio.
type TranscriptOutput struct {
	Provider   string  `json:"provider"`
	Text       string  `json:"text"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
	LatencyMS  int64   `json:"latency_ms"`
}

// ModelInfo describes one catalogue model.
type ModelInfo struct {
	Name       string `json:"name"`
	Language   string `json:"language"`
	Size       string `json:"size"`
	Downloaded bool   `json:"downloaded"`
	Default    bool   `json:"default"`
}

// ModelsOutput is the structured result of list_models.
type ModelsOutput struct {
	Models []ModelInfo `json:"models"`
}

// TranscriptRecord is one history row as exposed to clients.
type TranscriptRecord struct {
	Time      string `json:"time"`
	Provider  string `json:"provider"`
	Text      string `json:"text"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// RecentOutput is the structured result of recent_transcripts.
type RecentOutput struct {
	Transcripts []TranscriptRecord `json:"transcripts"`
}
