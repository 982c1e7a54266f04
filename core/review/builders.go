package review

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
)

var (
	nowFunc   = time.Now // mockable
	newIDFunc = func() string { return uuid.New().String() }
)

const doNothingOption = "do nothing"

// Builder walks the operator through a recorded error's suggested fixes and
// mints the corrective review. The review carries everything its handler
// needs, so replaying it against a freshly reloaded store reproduces the
// correction exactly.
type Builder struct {
	port core.EscalationPort
	log  core.Logger
}

func NewBuilder(port core.EscalationPort, log core.Logger) *Builder {
	return &Builder{port: port, log: log}
}

// BuildFor returns (nil, nil) when the operator opts out of fixing this
// error; core.ErrEscalationAborted passes through untouched when they back
// out of a prompt.
func (b *Builder) BuildFor(e *record.Error) (*record.Review, error) {
	options := append(append([]string(nil), e.Options...), doNothingOption)
	choice, err := b.port.Choose(e.String(), options)
	if err != nil {
		return nil, err
	}
	if choice < 0 || choice >= len(options) || options[choice] == doNothingOption {
		return nil, nil
	}

	revType := options[choice]
	params, err := b.collectParams(revType, e)
	if err != nil {
		return nil, err
	}

	return &record.Review{
		ID:      newIDFunc(),
		Date:    core.TruncateDay(nowFunc().UTC()),
		Comment: "operator fix for " + string(e.Tag) + " " + e.ID,
		Type:    revType,
		Params:  params,
	}, nil
}

func (b *Builder) collectParams(revType string, e *record.Error) ([]string, error) {
	switch revType {
	case "add_owner_key":
		fields, err := b.port.CollectFields([]core.FieldPrompt{
			{Name: "userID", Label: "id of the user owning " + e.Context["ownerKey"]},
		})
		if err != nil {
			return nil, err
		}
		return []string{fields["userID"], e.Context["ownerKey"]}, nil

	case "set_assignment":
		fields, err := b.port.CollectFields([]core.FieldPrompt{
			{Name: "assignmentID", Label: "assignment id for submission " + e.Context["submissionID"]},
		})
		if err != nil {
			return nil, err
		}
		return []string{e.Context["submissionID"], fields["assignmentID"]}, nil

	case "add_vacation":
		fields, err := b.port.CollectFields([]core.FieldPrompt{
			{Name: "ownerKey", Label: "owner key the vacation belongs to"},
			{Name: "startDate", Label: "vacation start (YYYY-MM-DD)"},
			{Name: "endDate", Label: "vacation end (YYYY-MM-DD)"},
		})
		if err != nil {
			return nil, err
		}
		return []string{fields["ownerKey"], fields["startDate"], fields["endDate"]}, nil

	case "ignore_review":
		return []string{e.Context["reviewID"]}, nil

	case "skip_error":
		return []string{e.ID}, nil
	}
	return nil, errors.Errorf("no builder for fix %q", revType)
}
