package licensing

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
)

// Progress is the applicant-facing view of an application
type Progress struct {
	Percent            int           `json:"percent"`
	Label              string        `json:"label"`
	Status             string        `json:"status"`
	StageIndex         int           `json:"stage_index"`
	StageCount         int           `json:"stage_count"`
	EstimatedRemaining time.Duration `json:"estimated_remaining"`
}

// ProgressOf projects the application's state onto its pinned workflow.
// Percent is floor((index+1)/total*100) while the application is on a stage,
// frozen at rejection, and 100 once approved.
func ProgressOf(a *Application, wf *workflow.Workflow) (Progress, error) {
	p := Progress{Status: a.status.Label(), Label: a.status.Label()}
	if a.status == StatusDraft {
		return p, nil
	}

	stage, idx, err := a.CurrentStageOf(wf)
	if err != nil {
		return Progress{}, err
	}
	p.StageIndex = idx + 1
	p.StageCount = wf.StageCount()

	switch a.status {
	case StatusApproved:
		p.Percent = 100
	case StatusRejected:
		p.Percent = a.frozenPercent
	default:
		p.Percent = percentOf(idx, wf.StageCount())
		p.Label = stage.Name
		p.EstimatedRemaining = wf.RemainingDuration(stage.Order)
	}
	return p, nil
}

func percentOf(idx, total int) int {
	if total == 0 {
		return 0
	}
	return (idx + 1) * 100 / total
}

// percentAt returns the on-stage percentage for order, 0 when the stage cannot be resolved
func percentAt(wf *workflow.Workflow, order int) int {
	_, idx, err := wf.StageAt(order)
	if err != nil {
		return 0
	}
	return percentOf(idx, wf.StageCount())
}
