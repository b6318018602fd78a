package domain

// ModelOption describes one selectable whisper model size.
type ModelOption struct {
	Label      string `json:"label"`
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	URL        string `json:"url"`
	SHA256     string `json:"sha256,omitempty"`
	SizeLabel  string `json:"sizeLabel,omitempty"`
	Downloaded bool   `json:"downloaded"`
	LocalPath  string `json:"localPath,omitempty"`
}
