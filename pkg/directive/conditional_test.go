package directive

import (
	"testing"

	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/token"
)

func TestConditionalStackSimpleIfElse(t *testing.T) {
	var s Stack
	s.PushIf(false)
	if s.IsActive() {
		t.Errorf("false #if should be inactive")
	}
	sink := diag.NewSink(nil)
	if err := s.Else(token.Position{}, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsActive() {
		t.Errorf("#else after a false #if should be active")
	}
	if err := s.Endif(token.Position{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Depth() != 0 {
		t.Errorf("Depth() = %d after matching #endif, want 0", s.Depth())
	}
}

func TestConditionalStackElifChain(t *testing.T) {
	var s Stack
	sink := diag.NewSink(nil)
	s.PushIf(false)
	if err := s.Elif(false, token.Position{}, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsActive() {
		t.Errorf("second false branch should be inactive")
	}
	if err := s.Elif(true, token.Position{}, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsActive() {
		t.Errorf("first true #elif branch should be active")
	}
	if err := s.Elif(true, token.Position{}, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsActive() {
		t.Errorf("a branch already taken at this level must disable a later true #elif")
	}
}

func TestConditionalStackNestedInactiveParentStaysInactive(t *testing.T) {
	var s Stack
	s.PushIf(false) // outer: inactive
	s.PushIf(true)  // inner: condition true, but parent inactive
	if s.IsActive() {
		t.Errorf("inner frame under an inactive parent must stay inactive regardless of its own condition")
	}
}

func TestConditionalStackDuplicateElseIsError(t *testing.T) {
	var s Stack
	sink := diag.NewSink(nil)
	s.PushIf(true)
	_ = s.Else(token.Position{}, sink)
	_ = s.Else(token.Position{}, sink)
	if sink.ErrorCount() == 0 {
		t.Errorf("expected an error for a duplicate #else")
	}
}

func TestConditionalStackElifAfterElseIsError(t *testing.T) {
	var s Stack
	sink := diag.NewSink(nil)
	s.PushIf(true)
	_ = s.Else(token.Position{}, sink)
	_ = s.Elif(true, token.Position{}, sink)
	if sink.ErrorCount() == 0 {
		t.Errorf("expected an error for #elif appearing after #else")
	}
}

func TestConditionalStackUnmatchedDirectivesAreErrors(t *testing.T) {
	var s Stack
	sink := diag.NewSink(nil)
	if err := s.Endif(token.Position{}); err == nil {
		t.Errorf("expected an error for #endif with no matching #if")
	}
	if err := s.Elif(true, token.Position{}, sink); err == nil {
		t.Errorf("expected an error for #elif with no matching #if")
	}
	if err := s.Else(token.Position{}, sink); err == nil {
		t.Errorf("expected an error for #else with no matching #if")
	}
}

func TestConditionalStackCheckBalanced(t *testing.T) {
	var s Stack
	if err := s.CheckBalanced(); err != nil {
		t.Errorf("an empty stack should be balanced, got %v", err)
	}
	s.PushIf(true)
	if err := s.CheckBalanced(); err == nil {
		t.Errorf("expected an error for an #if left open at end of file")
	}
}
