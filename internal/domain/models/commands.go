package models

import "strings"

// CommandType enumerates supported kitchen chat command categories.
type CommandType string

const (
	CommandStock   CommandType = "stock"
	CommandRestock CommandType = "restock"
	CommandPrepare CommandType = "prepare"
	CommandSell    CommandType = "sell"
	CommandReport  CommandType = "report"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed staff instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
// Arguments keep their original case so entity names can be matched as typed.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.TrimSpace(message))
	cmd := Command{Type: CommandUnknown, Raw: message}
	if len(tokens) == 0 {
		return cmd
	}

	switch CommandType(strings.ToLower(strings.TrimPrefix(tokens[0], "/"))) {
	case CommandStock:
		cmd.Type = CommandStock
	case CommandRestock:
		cmd.Type = CommandRestock
	case CommandPrepare:
		cmd.Type = CommandPrepare
	case CommandSell:
		cmd.Type = CommandSell
	case CommandReport:
		cmd.Type = CommandReport
	case CommandHelp:
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}
