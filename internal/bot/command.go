package bot

import "strings"

const CommandStart = "start"

var textCommands = map[string]bool{
	CommandStart:      true,
	ActionRefer:       true,
	ActionLeaderboard: true,
	ActionRules:       true,
	ActionUpdates:     true,
	ActionSupport:     true,
	ActionBack:        true,
}

// parseCommand reads "start ref_x", "!start ref_x" or "/leaderboard" style
// messages. ok is false for anything that is not a known command.
func parseCommand(text string) (cmd, arg string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", "", false
	}
	cmd = strings.ToLower(strings.TrimLeft(fields[0], "!/"))
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if !textCommands[cmd] {
		return "", "", false
	}
	if len(fields) > 1 {
		arg = fields[1]
	}
	return cmd, arg, true
}
