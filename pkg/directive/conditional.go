package directive

import (
	"fmt"

	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/token"
)

// ConditionalFrame is one level of #if/#ifdef/#ifndef nesting. Naming
// follows spec §3's vocabulary (Active/ParentsActive/SeenElse) rather
// than the teacher's ConditionState{active,seenElse,anyActive}, though
// the state machine itself — push on #if*, flip on #elif/#else subject
// to "has a branch already fired", pop on #endif — is grounded directly
// on pkg/cpp/conditional.go's ConditionalProcessor.
type ConditionalFrame struct {
	Active        bool // this frame's own branch is currently selected
	ParentsActive bool // every enclosing frame is active
	SeenElse      bool // an #else has already appeared at this level
	AnyTaken      bool // some branch at this level has already been true
}

// Stack is the Director's conditional-compilation stack (spec §3's
// Conditional Stack). The zero value is an empty, fully-active stack.
type Stack struct {
	frames []ConditionalFrame
}

// IsActive reports whether tokens encountered right now should be kept:
// true only when every frame on the stack is active, i.e. at top level
// or inside an unbroken chain of taken branches.
func (s *Stack) IsActive() bool {
	if len(s.frames) == 0 {
		return true
	}
	return s.frames[len(s.frames)-1].Active
}

// Depth reports the current nesting depth.
func (s *Stack) Depth() int { return len(s.frames) }

func (s *Stack) parentsActive() bool {
	return s.IsActive()
}

// PushIf handles #if/#ifdef/#ifndef: conditionTrue is the already-
// evaluated branch condition (constexpr.Eval's result for #if, or
// table.IsDefined's result, possibly negated, for #ifdef/#ifndef).
// Short-circuits to an inactive frame without needing conditionTrue's
// value when an enclosing frame is already inactive, mirroring
// ConditionalProcessor.ProcessIf's early return.
func (s *Stack) PushIf(conditionTrue bool) {
	parentsActive := s.parentsActive()
	active := parentsActive && conditionTrue
	s.frames = append(s.frames, ConditionalFrame{
		Active:        active,
		ParentsActive: parentsActive,
		AnyTaken:      active,
	})
}

// Elif handles #elif/#elifdef/#elifndef: conditionTrue is meaningless
// when the frame's enclosing context is inactive or a branch has
// already fired, matching ISO's "skip without evaluating" behavior for
// #elif under a false #if.
func (s *Stack) Elif(conditionTrue bool, pos token.Position, sink *diag.Sink) error {
	if len(s.frames) == 0 {
		return fmt.Errorf("#elif without matching #if")
	}
	top := &s.frames[len(s.frames)-1]
	if top.SeenElse {
		sink.Error(pos, "#elif after #else")
		return nil
	}
	if !top.ParentsActive || top.AnyTaken {
		top.Active = false
		return nil
	}
	top.Active = conditionTrue
	if conditionTrue {
		top.AnyTaken = true
	}
	return nil
}

// Else handles #else.
func (s *Stack) Else(pos token.Position, sink *diag.Sink) error {
	if len(s.frames) == 0 {
		return fmt.Errorf("#else without matching #if")
	}
	top := &s.frames[len(s.frames)-1]
	if top.SeenElse {
		sink.Error(pos, "duplicate #else")
		return nil
	}
	top.SeenElse = true
	top.Active = top.ParentsActive && !top.AnyTaken
	if top.Active {
		top.AnyTaken = true
	}
	return nil
}

// Endif handles #endif, popping the current frame.
func (s *Stack) Endif(pos token.Position) error {
	if len(s.frames) == 0 {
		return fmt.Errorf("#endif without matching #if")
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// CheckBalanced reports an error if frames remain open at end of file —
// an unterminated #if, per ISO 6.10p2.
func (s *Stack) CheckBalanced() error {
	if len(s.frames) != 0 {
		return fmt.Errorf("unterminated #if: %d conditional(s) still open at end of file", len(s.frames))
	}
	return nil
}
