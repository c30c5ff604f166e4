// Package telemetry decodes the line-oriented "[TST] {json}" event protocol
// that test binaries emit on stdout into structured phase/feature/measurement/
// result/error records with current-block tagging.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// prefix is the 6-byte ASCII sentinel that marks a structured telemetry line.
const prefix = "[TST] "

const riggingBlock = "rigging"

type (
	// Feature records a test's declared reliance on a named piece of
	// functionality, tagged with the block active when it was emitted.
	Feature struct {
		Name  string  `json:"name"`
		Block *string `json:"block"`
	}

	// Measurement records an observed value, scalar or structured, tagged
	// with the block active when it was emitted.
	Measurement struct {
		Name  string      `json:"name"`
		Value interface{} `json:"value"`
		Unit  string      `json:"unit,omitempty"`
		Block *string     `json:"block"`
	}

	// Result records a pass/fail verdict, tagged with its block.
	Result struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Block   *string `json:"block"`
	}

	// Error records a precondition or assertion failure, tagged with its block.
	Error struct {
		Message string  `json:"message"`
		Block   *string `json:"block"`
	}

	// Parsed is the full decoded output of a test's telemetry stream.
	Parsed struct {
		BlockSequence     []string      `json:"block_sequence"`
		Features          []Feature     `json:"features"`
		Measurements      []Measurement `json:"measurements"`
		Results           []Result      `json:"results"`
		Errors            []Error       `json:"errors"`
		PlainOutput       []string      `json:"plain_output"`
		Warnings          []string      `json:"warnings"`
		HasRiggingFailure bool          `json:"has_rigging_failure"`
	}
)

// rawEvent is the shape every structured line must decode into before
// dispatch on its "type" discriminator. A result event arrives in one of
// two shapes: {"status":"pass|fail","message":...} or the more compact
// {"name":"<n>","passed":<bool>}; Passed is nil when the line used the
// status/message form.
type rawEvent struct {
	Type    string          `json:"type"`
	Block   string          `json:"block"`
	Name    string          `json:"name"`
	Value   json.RawMessage `json:"value"`
	Unit    string          `json:"unit"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Passed  *bool           `json:"passed"`
}

const (
	resultStatusPass = "pass"
	resultStatusFail = "fail"
)

// ParseLines parses a slice of stdout lines into a Parsed record.
func ParseLines(lines []string) Parsed {
	p := Parsed{
		BlockSequence: []string{},
		Features:      []Feature{},
		Measurements:  []Measurement{},
		Results:       []Result{},
		Errors:        []Error{},
		PlainOutput:   []string{},
		Warnings:      []string{},
	}

	var currentBlock *string

	for _, line := range lines {
		rest, ok := strings.CutPrefix(line, prefix)
		if !ok {
			p.PlainOutput = append(p.PlainOutput, line)
			continue
		}

		if strings.TrimSpace(rest) == "" {
			p.Warnings = append(p.Warnings, "malformed telemetry line: empty payload after prefix")
			continue
		}

		var generic interface{}
		if err := json.Unmarshal([]byte(rest), &generic); err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("malformed telemetry line: %v", err))
			continue
		}

		obj, isObject := generic.(map[string]interface{})
		if !isObject {
			p.Warnings = append(p.Warnings, "malformed telemetry line: payload is not a JSON object")
			continue
		}

		if _, present := obj["type"]; !present {
			p.Warnings = append(p.Warnings, "malformed telemetry line: missing type field")
			continue
		}

		var ev rawEvent
		if err := json.Unmarshal([]byte(rest), &ev); err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("malformed telemetry line: %v", err))
			continue
		}

		switch ev.Type {
		case "phase", "block_start":
			if ev.Block == "" {
				continue
			}

			p.BlockSequence = append(p.BlockSequence, ev.Block)
			block := ev.Block
			currentBlock = &block
		case "block_end":
			// phase tracking relies exclusively on phase/block_start events.
		case "feature":
			p.Features = append(p.Features, Feature{Name: ev.Name, Block: currentBlock})
		case "measurement":
			var value interface{}
			if len(ev.Value) > 0 {
				_ = json.Unmarshal(ev.Value, &value)
			}

			p.Measurements = append(p.Measurements, Measurement{
				Name: ev.Name, Value: value, Unit: ev.Unit, Block: currentBlock,
			})
		case "result":
			status := ev.Status
			message := ev.Message

			// {"name":"<n>","passed":<bool>} form: normalize the bool into
			// the same status string the status/message form uses, and
			// fall back to the event's name so it isn't silently dropped.
			if status == "" && ev.Passed != nil {
				if *ev.Passed {
					status = resultStatusPass
				} else {
					status = resultStatusFail
				}

				if message == "" {
					message = ev.Name
				}
			}

			p.Results = append(p.Results, Result{Status: status, Message: message, Block: currentBlock})
		case "error":
			p.Errors = append(p.Errors, Error{Message: ev.Message, Block: currentBlock})
		case "step_start", "step_end":
			// informational only.
		default:
			// unknown event types are silently skipped for forward compatibility.
		}
	}

	p.HasRiggingFailure = IsRiggingFailure(p)

	return p
}

// ParseString splits s on newlines and parses the resulting lines.
func ParseString(s string) Parsed {
	if s == "" {
		return ParseLines(nil)
	}

	return ParseLines(strings.Split(s, "\n"))
}

// IsRiggingFailure reports whether any error in parsed.Errors was tagged
// with block == "rigging".
func IsRiggingFailure(parsed Parsed) bool {
	for _, e := range parsed.Errors {
		if e.Block != nil && *e.Block == riggingBlock {
			return true
		}
	}

	return false
}

// RiggingFeatures returns the names of features emitted while current_block
// was "rigging", in emission order.
func RiggingFeatures(parsed Parsed) []string {
	names := make([]string, 0, len(parsed.Features))

	for _, f := range parsed.Features {
		if f.Block != nil && *f.Block == riggingBlock {
			names = append(names, f.Name)
		}
	}

	return names
}
