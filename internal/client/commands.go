package client

import "strings"

// Command identifies a slash command after alias resolution.
type Command int

const (
	CmdNone Command = iota
	CmdUnknown
	CmdQuit
	CmdHelp
	CmdClear
	CmdRooms
	CmdJoin
	CmdUsers
	CmdMe
	CmdNick
	CmdTheme
	CmdStatus
	CmdHistory
)

// commandAliases maps every spelling a user may type to its command. The
// aliases are resolved once at parse time; handlers only see the canonical
// command.
var commandAliases = map[string]Command{
	"quit": CmdQuit, "q": CmdQuit, "exit": CmdQuit, "leave": CmdQuit,
	"help": CmdHelp, "h": CmdHelp, "?": CmdHelp,
	"clear": CmdClear, "cls": CmdClear,
	"rooms": CmdRooms, "r": CmdRooms, "room": CmdRooms,
	"join": CmdJoin, "j": CmdJoin, "go": CmdJoin,
	"users": CmdUsers, "u": CmdUsers, "who": CmdUsers,
	"me": CmdMe, "action": CmdMe,
	"nick": CmdNick, "name": CmdNick, "username": CmdNick,
	"theme": CmdTheme, "colors": CmdTheme, "style": CmdTheme,
	"status": CmdStatus, "s": CmdStatus,
	"history": CmdHistory, "hist": CmdHistory, "log": CmdHistory,
}

// ParseCommand splits a line into a command and its arguments. Lines not
// starting with a slash are plain chat input and return CmdNone.
func ParseCommand(input string) (Command, []string) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return CmdNone, nil
	}

	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return CmdUnknown, nil
	}

	cmd, ok := commandAliases[strings.ToLower(fields[0])]
	if !ok {
		return CmdUnknown, fields[1:]
	}
	return cmd, fields[1:]
}

const helpText = `Available commands:
  /quit, /q, /exit     leave the chat
  /help, /h, /?        show this help
  /clear, /cls         clear the screen
  /rooms, /r           list available rooms
  /join <room>, /j     switch to another room
  /users, /u           show the user count in the current room
  /me <action>         send an action message
  /nick <name>         change your username
  /theme <name>        change the color theme
  /status, /s          show connection status
  /history, /hist      show recent messages
Messages are encrypted end to end before they leave this terminal.`
