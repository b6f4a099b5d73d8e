// Package onboarding drives the linear question flow that fills a learner
// profile before the first chat.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qmuntal/stateless"

	"lernbuddy.de/lernbuddy/internal/profile"
)

type Step string

const (
	StepWelcome    Step = "welcome"
	StepName       Step = "name"
	StepAge        Step = "age"
	StepGrade      Step = "grade"
	StepSubject    Step = "subject"
	StepHobby      Step = "hobby"
	StepTeacher    Step = "teacher"
	StepStyle      Step = "style"
	StepDiagnostic Step = "diagnostic"
	StepChat       Step = "chat"
)

// Steps are the question steps in the order they are asked.
var Steps = []Step{StepName, StepAge, StepGrade, StepSubject, StepHobby, StepTeacher, StepStyle, StepDiagnostic}

var stepFields = map[Step]profile.Field{
	StepName:       profile.FirstName,
	StepAge:        profile.Age,
	StepGrade:      profile.Grade,
	StepSubject:    profile.Subject,
	StepHobby:      profile.Hobby,
	StepTeacher:    profile.FavoriteTeacher,
	StepStyle:      profile.TeacherReason,
	StepDiagnostic: profile.InitialProblem,
}

const (
	triggerNext = "next"
	triggerBack = "back"
)

// ErrFieldRequired is returned by Next when the current step is unanswered.
var ErrFieldRequired = errors.New("Bitte fülle dieses Feld aus, damit wir fortfahren können!")

// Field returns the profile field a question step fills.
func (s Step) Field() (profile.Field, bool) {
	f, ok := stepFields[s]
	return f, ok
}

// Wizard moves between steps. Advancing checks the answer of the current
// step against the profile returned by current.
type Wizard struct {
	sm      *stateless.StateMachine
	current func() profile.LearnerProfile
}

// New starts a wizard at start, which may be any question step, welcome or
// chat.
func New(start Step, current func() profile.LearnerProfile) (*Wizard, error) {
	if _, ok := stepFields[start]; !ok && start != StepWelcome && start != StepChat {
		return nil, fmt.Errorf("unknown onboarding step %q", start)
	}
	w := &Wizard{sm: stateless.NewStateMachine(start), current: current}

	w.sm.Configure(StepWelcome).
		Permit(triggerNext, Steps[0]).
		Ignore(triggerBack)

	for i, step := range Steps {
		next, prev := StepChat, StepWelcome
		if i < len(Steps)-1 {
			next = Steps[i+1]
		}
		if i > 0 {
			prev = Steps[i-1]
		}
		w.sm.Configure(step).
			Permit(triggerNext, next, w.answered(step)).
			Permit(triggerBack, prev)
	}

	w.sm.Configure(StepChat).
		Ignore(triggerNext).
		Permit(triggerBack, Steps[len(Steps)-1])

	return w, nil
}

func (w *Wizard) answered(step Step) stateless.GuardFunc {
	f := stepFields[step]
	return func(_ context.Context, _ ...any) bool {
		return strings.TrimSpace(w.current().Get(f)) != ""
	}
}

func (w *Wizard) Step() Step {
	return w.sm.MustState().(Step)
}

// Next advances one step, or lands on chat after the last question.
func (w *Wizard) Next(ctx context.Context) error {
	from := w.Step()
	if err := w.sm.FireCtx(ctx, triggerNext); err != nil {
		if _, ok := from.Field(); ok {
			return ErrFieldRequired
		}
		return fmt.Errorf("advance from %s: %w", from, err)
	}
	return nil
}

// Back retreats one step; from the first question it returns to welcome.
func (w *Wizard) Back(ctx context.Context) error {
	if err := w.sm.FireCtx(ctx, triggerBack); err != nil {
		return fmt.Errorf("retreat from %s: %w", w.Step(), err)
	}
	return nil
}

// Progress reports the 1-based position of the current question step and
// the number of steps. Position is 0 on welcome and len(Steps) on chat.
func (w *Wizard) Progress() (position, total int) {
	step := w.Step()
	if step == StepChat {
		return len(Steps), len(Steps)
	}
	for i, s := range Steps {
		if s == step {
			return i + 1, len(Steps)
		}
	}
	return 0, len(Steps)
}
