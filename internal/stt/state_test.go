package stt

import "testing"

func TestNewStateMachine_InitialStateIsIdle(t *testing.T) {
	sm := NewStateMachine()
	if sm.Current() != StateIdle {
		t.Fatalf("expected initial state Idle, got %s", sm.Current())
	}
}

func TestStateMachine_ValidTransitions(t *testing.T) {
	tests := []struct {
		from, to State
	}{
		{StateIdle, StateListening},
		{StateListening, StateProcessing},
		{StateListening, StateFailed},
		{StateProcessing, StateResolved},
		{StateProcessing, StateFailed},
	}

	for _, tt := range tests {
		sm := NewStateMachine()
		advanceTo(t, sm, tt.from)

		if !sm.Transition(tt.to) {
			t.Errorf("transition %s → %s should be valid", tt.from, tt.to)
		}
		if sm.Current() != tt.to {
			t.Errorf("expected state %s, got %s", tt.to, sm.Current())
		}
	}
}

func TestStateMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		from, to State
	}{
		{StateIdle, StateProcessing},
		{StateIdle, StateResolved},
		{StateIdle, StateIdle},
		{StateListening, StateResolved},
		{StateListening, StateListening},
		{StateProcessing, StateListening},
		{StateProcessing, StateIdle},
		{StateResolved, StateIdle},
		{StateResolved, StateFailed},
		{StateFailed, StateListening},
		{StateFailed, StateResolved},
	}

	for _, tt := range tests {
		sm := NewStateMachine()
		advanceTo(t, sm, tt.from)

		if sm.Transition(tt.to) {
			t.Errorf("transition %s → %s should be invalid", tt.from, tt.to)
		}
		if sm.Current() != tt.from {
			t.Errorf("state should remain %s after invalid transition, got %s", tt.from, sm.Current())
		}
	}
}

func TestStateMachine_Reset(t *testing.T) {
	sm := NewStateMachine()
	advanceTo(t, sm, StateResolved)

	var got []State
	sm.SetOnChange(func(from, to State) { got = append(got, from, to) })
	sm.Reset()

	if sm.Current() != StateIdle {
		t.Fatalf("expected Idle after Reset, got %s", sm.Current())
	}
	if len(got) != 2 || got[0] != StateResolved || got[1] != StateIdle {
		t.Errorf("onChange = %v", got)
	}

	got = nil
	sm.Reset()
	if len(got) != 0 {
		t.Errorf("Reset from Idle should not notify, got %v", got)
	}
}

func TestState_String(t *testing.T) {
	if StateResolved.String() != "Resolved" || State(99).String() != "Unknown" {
		t.Errorf("unexpected names %s %s", StateResolved, State(99))
	}
	if !StateFailed.Terminal() || StateProcessing.Terminal() {
		t.Error("Terminal() mismatch")
	}
}

// advanceTo 通过合法转换把状态机推进到目标状态。
func advanceTo(t *testing.T, sm *StateMachine, target State) {
	t.Helper()
	paths := map[State][]State{
		StateIdle:       nil,
		StateListening:  {StateListening},
		StateProcessing: {StateListening, StateProcessing},
		StateResolved:   {StateListening, StateProcessing, StateResolved},
		StateFailed:     {StateListening, StateProcessing, StateFailed},
	}
	for _, s := range paths[target] {
		if !sm.Transition(s) {
			t.Fatalf("failed to advance to %s", s)
		}
	}
}
