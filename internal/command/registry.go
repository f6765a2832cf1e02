package command

import (
	"fmt"
)

// Handler executes one command with coerced arguments and returns the reply
// data (nil for pure mutations).
type Handler func(args Args) (any, error)

// Command is one registered operator action.
type Command struct {
	Action  string
	Params  []Param
	Handler Handler

	// Overwrite permits replacing an existing registration; without it a
	// duplicate action is a startup error.
	Overwrite bool
}

// Registry maps action keys to commands. Registration happens only at
// startup; lookups are loop-local afterwards.
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

func (r *Registry) Register(cmd Command) error {
	if cmd.Action == "" {
		return fmt.Errorf("command registration requires an action")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q registered without a handler", cmd.Action)
	}
	if _, dup := r.commands[cmd.Action]; dup && !cmd.Overwrite {
		return fmt.Errorf("command %q is already registered", cmd.Action)
	}
	r.commands[cmd.Action] = cmd
	return nil
}

// Lookup resolves an action, preferring a namespace-qualified registration
// when the envelope carried a type.
func (r *Registry) Lookup(namespace, action string) (Command, bool) {
	if namespace != "" {
		if cmd, ok := r.commands[namespace+"."+action]; ok {
			return cmd, true
		}
	}
	cmd, ok := r.commands[action]
	return cmd, ok
}
