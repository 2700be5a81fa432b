package onboarding

// Command is the closed set of inputs a Flow accepts. UI layers translate
// button presses into one of Advance, Skip, Retreat or Complete and hand it
// to Flow.Handle.
type Command interface {
	commandName() string
}

type Advance struct {
	StepID StepID
	Data   StepData
}

type Skip struct {
	StepID StepID
}

type Retreat struct{}

type Complete struct{}

func (Advance) commandName() string  { return "advance" }
func (Skip) commandName() string     { return "skip" }
func (Retreat) commandName() string  { return "retreat" }
func (Complete) commandName() string { return "complete" }

// CommandName returns the wire name of cmd.
func CommandName(cmd Command) string {
	if cmd == nil {
		return "unknown"
	}
	return cmd.commandName()
}
