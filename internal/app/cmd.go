package app

// Command selects what the binary does.
type Command string

const (
	CommandServe   Command = "serve"
	CommandMigrate Command = "migrate"
)

// ParseCommand reads the sub-command from args (os.Args[1:]).
// Anything unrecognised, or nothing, means serve.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	switch args[0] {
	case "migrate":
		return CommandMigrate
	default:
		return CommandServe
	}
}
