package domain

// JobStatus tracks each stage of a single transcription job.
type JobStatus string

const (
	JobStatusIdle          JobStatus = "idle"
	JobStatusConfirming    JobStatus = "confirming"
	JobStatusPreprocessing JobStatus = "preprocessing"
	JobStatusTranscribing  JobStatus = "transcribing"
	JobStatusExporting     JobStatus = "exporting"
	JobStatusDone          JobStatus = "done"
	JobStatusFailed        JobStatus = "failed"
)

// Settings contains read-only runtime configuration.
type Settings struct {
	ModelDir    string `json:"modelDir"`
	OutputDir   string `json:"outputDir"`
	FFmpegPath  string `json:"ffmpegPath"`
	WhisperPath string `json:"whisperPath"`
	Language    string `json:"language"`
	Threads     uint   `json:"threads"`
	Verbose     bool   `json:"verbose"`
	JSONLogs    bool   `json:"jsonLogs"`
}

// Job stores the current job identity and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}

// UIState is the snapshot the frontend renders controls from.
type UIState struct {
	ModelLabel        string    `json:"modelLabel"`
	ModelID           string    `json:"modelId"`
	ModelLoading      bool      `json:"modelLoading"`
	ModelReady        bool      `json:"modelReady"`
	InputPath         string    `json:"inputPath"`
	OutputName        string    `json:"outputName"`
	StatusLabel       string    `json:"statusLabel"`
	FileSelectEnabled bool      `json:"fileSelectEnabled"`
	TranscribeEnabled bool      `json:"transcribeEnabled"`
	JobStatus         JobStatus `json:"jobStatus"`
}
