// Package session runs the menu-driven conversation a chat front end holds
// with each actor: choosing roles, admitting chapters and finishing work.
//
// Every actor has one Session whose Step names where the conversation is.
// Input is dispatched through a transition table keyed by (step, input);
// the matching effect calls the pipeline and returns the next step.
package session

// Step is a conversation state.
type Step string

const (
	StepMenu           Step = "menu"
	StepChooseRoles    Step = "choose_roles"
	StepIntakeTitle    Step = "intake_title"
	StepIntakeNewTitle Step = "intake_new_title"
	StepIntakeChapters Step = "intake_chapters"
	StepIntakeStart    Step = "intake_start"
	StepIntakeStage    Step = "intake_stage"
	StepFinishRole     Step = "finish_role"
	StepFinishTitle    Step = "finish_title"
	StepFinishChapters Step = "finish_chapters"

	// stepAny matches every step in the transition table.
	stepAny Step = "*"
)

// Menu options and commands understood in any step.
const (
	CmdStart = "/start"
	CmdMenu  = "/menu"

	OptMyTasks     = "My tasks"
	OptMyRoles     = "My roles"
	OptChooseRoles = "Choose roles"
	OptFinish      = "Finish chapters"
	OptAddChapters = "Add chapters"
	OptBack        = "Back"
	OptDone        = "Done"
	OptNewTitle    = "New title"
	OptFromScratch = "From scratch"
	OptContinue    = "Continue from stage"
)

// Reply is what the front end shows after one input: a message and the
// choices to offer next.
type Reply struct {
	Text    string
	Options []string
}
