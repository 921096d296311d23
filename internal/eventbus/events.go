package eventbus

import "time"

// Типы событий сервиса рельефа
const (
	TypeRenderCompleted = "render.completed"
	TypeRenderRejected  = "render.rejected"
	TypePresetSaved     = "preset.saved"
	TypePresetDeleted   = "preset.deleted"
)

// RenderCompleted публикуется после успешного рендера (в том числе из кеша).
type RenderCompleted struct {
	Engine     string        `json:"engine"`
	Size       int           `json:"size"`
	Seed       uint64        `json:"seed"`
	Cached     bool          `json:"cached"`
	Duration   time.Duration `json:"duration_ns"`
	PresetName string        `json:"preset,omitempty"`
}

// RenderRejected публикуется, когда рендер завершился ошибкой.
type RenderRejected struct {
	Engine string `json:"engine"`
	Size   int    `json:"size"`
	Kind   string `json:"kind"` // invalid_size, invalid_settings, numeric_degenerate, canceled, internal
	Reason string `json:"reason"`
}

// PresetChanged публикуется при сохранении и удалении пресета.
type PresetChanged struct {
	Name    string `json:"name"`
	Engine  string `json:"engine,omitempty"`
	Subject string `json:"subject,omitempty"` // кто изменил (из JWT)
}
