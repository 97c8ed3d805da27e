package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
)

// Task types.
const (
	TypeGridReplace = "grid:replace"
)

// GridReplacePayload carries the full list the store should hold after the task runs.
// When Revision is set the task only applies while the store is still at that
// revision; a newer write makes it stale.
type GridReplacePayload struct {
	Cells    []domain.Cell `json:"cells"`
	Revision *int64        `json:"revision,omitempty"`
}

func NewGridReplaceTask(p GridReplacePayload) (*asynq.Task, error) {
	if p.Cells == nil {
		p.Cells = []domain.Cell{}
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("tasks: failed to encode %s payload: %w", TypeGridReplace, err)
	}
	return asynq.NewTask(TypeGridReplace, payload), nil
}

func ParseGridReplacePayload(raw []byte) (GridReplacePayload, error) {
	var p GridReplacePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("tasks: failed to decode %s payload: %w", TypeGridReplace, err)
	}
	if p.Cells == nil {
		p.Cells = []domain.Cell{}
	}
	return p, nil
}
