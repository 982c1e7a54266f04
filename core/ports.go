package core

import "github.com/pkg/errors"

// ErrEscalationAborted is returned by an EscalationPort when the operator
// backs out of a single prompt. The driver treats it as "drop this
// correction attempt", never as a fatal abort.
var ErrEscalationAborted = errors.New("escalation aborted")

type (
	// RowSource is any collaborator that can load tabular input rows.
	// Encodings (CSV columns, delimiters, paths) are its concern alone.
	RowSource interface {
		LoadRows(sourceID string) ([][]string, error)
	}

	// ReportSink is any collaborator that can persist a header+rows table.
	ReportSink interface {
		EmitReport(name string, header []string, rows [][]string) error
	}

	// FieldPrompt describes one field an EscalationPort should collect.
	FieldPrompt struct {
		Name  string
		Label string
	}

	// EscalationPort is the only way the core asks a human anything.
	EscalationPort interface {
		// Choose presents numbered options and returns the selected index.
		Choose(prompt string, options []string) (int, error)
		Confirm(prompt string) (bool, error)
		CollectFields(prompts []FieldPrompt) (map[string]string, error)
	}
)
