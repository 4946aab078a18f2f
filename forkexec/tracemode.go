package forkexec

import (
	"fmt"
)

// TraceMode selects how much instrumentation is recorded per call, in
// increasing order of detail.
type TraceMode int

const (
	TraceNone TraceMode = iota
	TraceCall
	TraceJumpSimple
	TraceJump
	TraceDebug
)

var traceModeNames = map[TraceMode]string{
	TraceNone:       "none",
	TraceCall:       "call",
	TraceJumpSimple: "jumpSimple",
	TraceJump:       "jump",
	TraceDebug:      "debug",
}

func (m TraceMode) String() string {
	if name, ok := traceModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TraceMode(%d)", int(m))
}

// Enabled reports whether any trace data is recorded.
func (m TraceMode) Enabled() bool {
	return m > TraceNone
}

func (m TraceMode) recordsSteps() bool {
	return m >= TraceJumpSimple
}

func (m TraceMode) recordsStack() bool {
	return m >= TraceJump
}

// ParseTraceMode parses a trace mode name. The empty string selects
// TraceNone.
func ParseTraceMode(s string) (TraceMode, error) {
	if s == "" {
		return TraceNone, nil
	}
	for mode, name := range traceModeNames {
		if s == name {
			return mode, nil
		}
	}
	return TraceNone, fmt.Errorf("%w: %q", ErrUnknownTraceMode, s)
}

func (m TraceMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TraceMode) UnmarshalText(text []byte) error {
	mode, err := ParseTraceMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
