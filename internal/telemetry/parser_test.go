package telemetry

import "testing"

func TestParseLinesEmptyInput(t *testing.T) {
	p := ParseLines(nil)

	if len(p.BlockSequence) != 0 || len(p.Features) != 0 || p.HasRiggingFailure {
		t.Fatalf("empty input should yield empty parsed result, got %+v", p)
	}
}

func TestParseLinesScenario5(t *testing.T) {
	lines := []string{
		`[TST] {"type":"phase","block":"rigging"}`,
		`[TST] {"type":"feature","name":"auth"}`,
		`[TST] {"type":"phase","block":"verdict"}`,
		`[TST] {"type":"error","message":"boom"}`,
	}

	p := ParseLines(lines)

	if len(p.BlockSequence) != 2 || p.BlockSequence[0] != "rigging" || p.BlockSequence[1] != "verdict" {
		t.Fatalf("unexpected block_sequence: %+v", p.BlockSequence)
	}

	if len(p.Features) != 1 || p.Features[0].Name != "auth" || p.Features[0].Block == nil || *p.Features[0].Block != "rigging" {
		t.Fatalf("unexpected features: %+v", p.Features)
	}

	if len(p.Errors) != 1 || p.Errors[0].Message != "boom" || p.Errors[0].Block == nil || *p.Errors[0].Block != "verdict" {
		t.Fatalf("unexpected errors: %+v", p.Errors)
	}

	if p.HasRiggingFailure {
		t.Fatalf("expected has_rigging_failure=false, got true")
	}
}

func TestParseLinesRiggingFailure(t *testing.T) {
	lines := []string{
		`[TST] {"type":"phase","block":"rigging"}`,
		`[TST] {"type":"error","message":"precondition failed"}`,
	}

	p := ParseLines(lines)

	if !p.HasRiggingFailure {
		t.Fatalf("expected has_rigging_failure=true")
	}
}

func TestParseLinesBeforeFirstPhaseBlockIsNil(t *testing.T) {
	lines := []string{`[TST] {"type":"feature","name":"early"}`}

	p := ParseLines(lines)

	if len(p.Features) != 1 || p.Features[0].Block != nil {
		t.Fatalf("expected nil block before first phase, got %+v", p.Features)
	}
}

func TestParseLinesMalformedJSON(t *testing.T) {
	lines := []string{`[TST] {not json`}

	p := ParseLines(lines)

	if len(p.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", p.Warnings)
	}
}

func TestParseLinesNotAnObject(t *testing.T) {
	lines := []string{`[TST] [1,2,3]`}

	p := ParseLines(lines)

	if len(p.Warnings) != 1 {
		t.Fatalf("expected one warning for non-object payload, got %v", p.Warnings)
	}
}

func TestParseLinesMissingType(t *testing.T) {
	lines := []string{`[TST] {"block":"rigging"}`}

	p := ParseLines(lines)

	if len(p.Warnings) != 1 {
		t.Fatalf("expected one warning for missing type, got %v", p.Warnings)
	}
}

func TestParseLinesEmptyAfterPrefix(t *testing.T) {
	lines := []string{`[TST] `}

	p := ParseLines(lines)

	if len(p.Warnings) != 1 {
		t.Fatalf("expected one warning for empty payload, got %v", p.Warnings)
	}
}

func TestParseLinesMalformedDoesNotDisturbState(t *testing.T) {
	lines := []string{
		`[TST] {"type":"phase","block":"stimulation"}`,
		`not structured at all`,
		`[TST] garbage{{`,
		`[TST] {"type":"feature","name":"still-tracked"}`,
	}

	p := ParseLines(lines)

	if len(p.Features) != 1 || p.Features[0].Block == nil || *p.Features[0].Block != "stimulation" {
		t.Fatalf("malformed lines disturbed block state: %+v", p.Features)
	}

	if len(p.PlainOutput) != 1 || p.PlainOutput[0] != "not structured at all" {
		t.Fatalf("unexpected plain output: %+v", p.PlainOutput)
	}

	if len(p.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", p.Warnings)
	}
}

func TestParseLinesUnknownTypeSkippedSilently(t *testing.T) {
	lines := []string{`[TST] {"type":"future_event","foo":"bar"}`}

	p := ParseLines(lines)

	if len(p.Warnings) != 0 {
		t.Fatalf("unknown type should not produce a warning, got %v", p.Warnings)
	}
}

func TestParseLinesBlockEndIgnored(t *testing.T) {
	lines := []string{
		`[TST] {"type":"phase","block":"rigging"}`,
		`[TST] {"type":"block_end","block":"rigging"}`,
		`[TST] {"type":"feature","name":"still-rigging"}`,
	}

	p := ParseLines(lines)

	if len(p.Features) != 1 || p.Features[0].Block == nil || *p.Features[0].Block != "rigging" {
		t.Fatalf("block_end should not pop current_block: %+v", p.Features)
	}
}

func TestParseStringSplitsOnNewline(t *testing.T) {
	s := "[TST] {\"type\":\"phase\",\"block\":\"rigging\"}\nplain line"

	p := ParseString(s)

	if len(p.BlockSequence) != 1 || p.BlockSequence[0] != "rigging" {
		t.Fatalf("unexpected block_sequence: %+v", p.BlockSequence)
	}

	if len(p.PlainOutput) != 1 || p.PlainOutput[0] != "plain line" {
		t.Fatalf("unexpected plain output: %+v", p.PlainOutput)
	}
}

func TestParseLinesResultStatusMessageForm(t *testing.T) {
	lines := []string{`[TST] {"type":"result","status":"fail","message":"assertion mismatch"}`}

	p := ParseLines(lines)

	if len(p.Results) != 1 || p.Results[0].Status != "fail" || p.Results[0].Message != "assertion mismatch" {
		t.Fatalf("unexpected results: %+v", p.Results)
	}
}

func TestParseLinesResultNamePassedForm(t *testing.T) {
	lines := []string{
		`[TST] {"type":"result","name":"checks_auth_token","passed":true}`,
		`[TST] {"type":"result","name":"checks_retry_budget","passed":false}`,
	}

	p := ParseLines(lines)

	if len(p.Results) != 2 {
		t.Fatalf("expected 2 results, got %+v", p.Results)
	}

	if p.Results[0].Status != resultStatusPass || p.Results[0].Message != "checks_auth_token" {
		t.Fatalf("unexpected passed result: %+v", p.Results[0])
	}

	if p.Results[1].Status != resultStatusFail || p.Results[1].Message != "checks_retry_budget" {
		t.Fatalf("unexpected failed result: %+v", p.Results[1])
	}
}

func TestParseLinesResultStatusTakesPrecedenceOverPassed(t *testing.T) {
	// A line carrying both forms (malformed, but should not crash or silently
	// discard the signal) prefers the explicit status/message form.
	lines := []string{`[TST] {"type":"result","status":"fail","message":"explicit","name":"ignored","passed":true}`}

	p := ParseLines(lines)

	if len(p.Results) != 1 || p.Results[0].Status != "fail" || p.Results[0].Message != "explicit" {
		t.Fatalf("expected explicit status/message to win, got %+v", p.Results)
	}
}

func TestRiggingFeaturesEmissionOrder(t *testing.T) {
	lines := []string{
		`[TST] {"type":"phase","block":"rigging"}`,
		`[TST] {"type":"feature","name":"notification"}`,
		`[TST] {"type":"feature","name":"auth"}`,
		`[TST] {"type":"phase","block":"verdict"}`,
		`[TST] {"type":"feature","name":"not-rigging"}`,
	}

	p := ParseLines(lines)
	got := RiggingFeatures(p)

	if len(got) != 2 || got[0] != "notification" || got[1] != "auth" {
		t.Fatalf("unexpected rigging features: %+v", got)
	}
}
