package model

import (
	"time"

	"github.com/google/uuid"
)

// IterationStatus представляет статус итерации дизайна.
type IterationStatus string

// Статус меняется строго в одну сторону: processing -> completed | failed.
const (
	IterationStatusProcessing IterationStatus = "processing"
	IterationStatusCompleted  IterationStatus = "completed"
	IterationStatusFailed     IterationStatus = "failed"
)

// IsTerminal сообщает, достигла ли итерация конечного состояния.
func (s IterationStatus) IsTerminal() bool {
	return s == IterationStatusCompleted || s == IterationStatusFailed
}

// DesignIteration представляет одну итерацию генерации архитектурного дизайна.
// Поля результата заполняются только при статусе completed.
type DesignIteration struct {
	ID                int64           `json:"id" db:"id"`
	OwnerID           uuid.UUID       `json:"owner_id" db:"owner_id"`
	Prompt            string          `json:"prompt" db:"prompt"`
	SketchPath        string          `json:"sketch_path" db:"sketch_path"`
	GeneratedImageURL *string         `json:"generated_image_url" db:"generated_image_url"`
	Narrative         *string         `json:"narrative" db:"narrative"`
	ComplianceCheck   *string         `json:"compliance_check" db:"compliance_check"`
	Status            IterationStatus `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}
