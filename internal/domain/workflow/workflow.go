package workflow

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var licenseTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,49}$`)

// Workflow is one version of the stage sequence for a license type.
// The stage slice is sorted ascending by order when the workflow is built
// and never modified afterwards.
type Workflow struct {
	ID            uuid.UUID
	LicenseTypeID string
	DepartmentID  uuid.UUID
	Version       int
	Active        bool
	CreatedBy     uuid.UUID
	CreatedAt     time.Time

	stages []Stage
}

// Definition is the input for defining a new workflow version
type Definition struct {
	LicenseTypeID string
	DepartmentID  uuid.UUID
	Stages        []Stage
	CreatedBy     uuid.UUID
}

// NewWorkflow validates a definition and builds an inactive, unversioned workflow.
// Any violation fails with InvalidWorkflow and nothing is built.
func NewWorkflow(def Definition) (*Workflow, error) {
	licenseType := NormalizeLicenseType(def.LicenseTypeID)
	if !licenseTypePattern.MatchString(licenseType) {
		return nil, invalidWorkflow("license type identifier is malformed")
	}
	if def.DepartmentID == uuid.Nil {
		return nil, invalidWorkflow("owning department is required")
	}
	if len(def.Stages) == 0 {
		return nil, invalidWorkflow("at least one stage is required")
	}

	stages := make([]Stage, 0, len(def.Stages))
	seen := make(map[int]string, len(def.Stages))
	for _, s := range def.Stages {
		s = s.normalize()
		if err := s.validate(); err != nil {
			return nil, err
		}
		if other, dup := seen[s.Order]; dup {
			return nil, invalidWorkflow("stages " + other + " and " + s.Name + " share order " + strconv.Itoa(s.Order))
		}
		seen[s.Order] = s.Name
		stages = append(stages, s)
	}
	sortStages(stages)

	return &Workflow{
		ID:            uuid.New(),
		LicenseTypeID: licenseType,
		DepartmentID:  def.DepartmentID,
		CreatedBy:     def.CreatedBy,
		CreatedAt:     shared.Now(),
		stages:        stages,
	}, nil
}

// Reconstruct rebuilds a workflow from storage. Stored rows are trusted and not
// re-validated, so order ties surface as AmbiguousStage at transition time.
func Reconstruct(id uuid.UUID, licenseTypeID string, departmentID uuid.UUID, version int, active bool,
	createdBy uuid.UUID, createdAt time.Time, stages []Stage) *Workflow {
	sorted := make([]Stage, len(stages))
	for i, s := range stages {
		sorted[i] = s.clone()
	}
	sortStages(sorted)
	return &Workflow{
		ID:            id,
		LicenseTypeID: licenseTypeID,
		DepartmentID:  departmentID,
		Version:       version,
		Active:        active,
		CreatedBy:     createdBy,
		CreatedAt:     createdAt,
		stages:        sorted,
	}
}

// NormalizeLicenseType returns the canonical form of a license type identifier:
// NFKC-normalized, trimmed and upper-cased. Full-width input maps to ASCII.
func NormalizeLicenseType(s string) string {
	return cases.Upper(language.Und).String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Supersede makes w the successor of previous (nil when w is the first version) and activates it
func (w *Workflow) Supersede(previous *Workflow) {
	w.Version = 1
	if previous != nil {
		w.Version = previous.Version + 1
		previous.Active = false
	}
	w.Active = true
}

// Stages returns a copy of the ordered stage sequence
func (w *Workflow) Stages() []Stage {
	out := make([]Stage, len(w.stages))
	for i, s := range w.stages {
		out[i] = s.clone()
	}
	return out
}

// StageCount returns the number of stages
func (w *Workflow) StageCount() int {
	return len(w.stages)
}

// FirstStage returns the stage with the lowest order
func (w *Workflow) FirstStage() (Stage, error) {
	if len(w.stages) == 0 {
		return Stage{}, invalidWorkflow("workflow has no stages")
	}
	if len(w.stages) > 1 && w.stages[1].Order == w.stages[0].Order {
		return Stage{}, ambiguous(w.stages[0].Order)
	}
	return w.stages[0].clone(), nil
}

// StageAt returns the stage with the given order and its index in the sequence
func (w *Workflow) StageAt(order int) (Stage, int, error) {
	idx := sort.Search(len(w.stages), func(i int) bool { return w.stages[i].Order >= order })
	if idx == len(w.stages) || w.stages[idx].Order != order {
		return Stage{}, -1, shared.NewDomainError(shared.CodeNotFound, "Stage "+strconv.Itoa(order)+" does not exist in this workflow")
	}
	if idx+1 < len(w.stages) && w.stages[idx+1].Order == order {
		return Stage{}, -1, ambiguous(order)
	}
	return w.stages[idx].clone(), idx, nil
}

// NextStage returns the stage with the smallest order greater than currentOrder.
// ok is false when currentOrder is the last stage.
func (w *Workflow) NextStage(currentOrder int) (next Stage, ok bool, err error) {
	idx := sort.Search(len(w.stages), func(i int) bool { return w.stages[i].Order > currentOrder })
	if idx == len(w.stages) {
		return Stage{}, false, nil
	}
	if idx+1 < len(w.stages) && w.stages[idx+1].Order == w.stages[idx].Order {
		return Stage{}, false, ambiguous(w.stages[idx].Order)
	}
	return w.stages[idx].clone(), true, nil
}

// RemainingDuration sums the estimated durations of the stage at fromOrder and every later stage
func (w *Workflow) RemainingDuration(fromOrder int) time.Duration {
	var total time.Duration
	for _, s := range w.stages {
		if s.Order >= fromOrder {
			total += s.EstimatedDuration
		}
	}
	return total
}

func sortStages(stages []Stage) {
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })
}

func ambiguous(order int) error {
	return shared.NewDomainError(shared.CodeAmbiguousStage, "More than one stage has order "+strconv.Itoa(order))
}
