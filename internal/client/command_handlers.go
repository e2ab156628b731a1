package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Knighty7-ciper/cmd-chat/internal/types"
)

var themes = []string{"dark", "light", "colorful", "neon"}

// runCommand executes one resolved command. It returns false only when the
// session should end.
func (m *Manager) runCommand(cmd Command, args []string) bool {
	switch cmd {
	case CmdQuit:
		m.renderer.Info("goodbye!")
		m.Close()
		return false
	case CmdHelp:
		m.renderer.Info(helpText)
	case CmdClear:
		m.renderer.Clear()
	case CmdRooms:
		m.showRooms()
	case CmdJoin:
		m.joinRoom(args)
	case CmdUsers:
		m.mu.Lock()
		count := m.userCount
		room := m.room
		m.mu.Unlock()
		m.renderer.Info(fmt.Sprintf("%d user(s) in %s", count, room))
	case CmdMe:
		m.sendAction(args)
	case CmdNick:
		m.changeNick(args)
	case CmdTheme:
		m.changeTheme(args)
	case CmdStatus:
		m.showStatus()
	case CmdHistory:
		m.showHistory()
	case CmdUnknown:
		m.renderer.Warn("unknown command")
		m.renderer.Info("type /help for available commands")
	}
	return true
}

func (m *Manager) showRooms() {
	resp, err := m.http.Get(m.baseUrl() + "/rooms")
	if err != nil {
		m.renderer.Error(fmt.Sprintf("could not list rooms: %v", err))
		return
	}
	defer resp.Body.Close()

	var list struct {
		Rooms []types.Room `json:"rooms"`
		Total int          `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		m.renderer.Error(fmt.Sprintf("could not list rooms: %v", err))
		return
	}

	m.mu.Lock()
	current := m.room
	m.mu.Unlock()

	for _, room := range list.Rooms {
		marker := " "
		if room.Id == current {
			marker = "*"
		}
		m.renderer.Info(fmt.Sprintf("%s %s (%s) - %d user(s)", marker, room.Name, room.Id, room.MemberCount))
	}
	m.renderer.Info(fmt.Sprintf("current room: %s", current))
}

// joinRoom switches rooms by tearing both sockets down and redialing with
// the new room id. The receive loop's reconnect is expected here, so its
// warning is suppressed.
func (m *Manager) joinRoom(args []string) {
	if len(args) == 0 {
		m.renderer.Warn("usage: /join <room>")
		return
	}
	room := args[0]

	m.mu.Lock()
	old := m.room
	m.room = room
	m.switching = true
	update := m.update
	m.update = nil
	m.mu.Unlock()

	m.dropTalk()
	if update != nil {
		update.Close()
	}

	talk, err := m.connectWithRetry("/talk")
	if err != nil {
		m.renderer.Error(err.Error())
		return
	}
	m.mu.Lock()
	m.talk = talk
	m.mu.Unlock()
	go m.drainTalk(talk)

	m.renderer.Info(fmt.Sprintf("switched from %s to %s", old, room))
}

func (m *Manager) sendAction(args []string) {
	if len(args) == 0 {
		m.renderer.Warn("usage: /me <action>")
		return
	}

	m.mu.Lock()
	username := m.username
	m.mu.Unlock()
	m.renderer.Info(fmt.Sprintf("* %s %s", username, strings.Join(args, " ")))
}

// changeNick validates and applies a new username. The talk socket is
// dropped so the next send reconnects under the new identity.
func (m *Manager) changeNick(args []string) {
	if len(args) == 0 {
		m.renderer.Warn("usage: /nick <new_username>")
		return
	}

	name := args[0]
	if err := types.ValidateUsername(name); err != nil {
		m.renderer.Warn(err.Error())
		return
	}

	m.mu.Lock()
	old := m.username
	m.username = name
	m.mu.Unlock()

	m.dropTalk()
	m.renderer.Info(fmt.Sprintf("changed username from %s to %s", old, name))
}

func (m *Manager) changeTheme(args []string) {
	if len(args) == 0 {
		m.renderer.Info("available themes: " + strings.Join(themes, ", "))
		return
	}

	name := strings.ToLower(args[0])
	for _, t := range themes {
		if name == t {
			m.mu.Lock()
			m.theme = name
			m.mu.Unlock()
			m.renderer.Info(fmt.Sprintf("changed theme to %s", name))
			return
		}
	}
	m.renderer.Warn(fmt.Sprintf("unknown theme: %s", name))
}

func (m *Manager) showStatus() {
	m.mu.Lock()
	room := m.room
	username := m.username
	connected := m.connected
	count := m.messageCount
	users := m.userCount
	heartbeat := m.lastHeartbeat
	m.mu.Unlock()

	state := "disconnected"
	if connected {
		state = "connected"
	}

	uptime := time.Since(m.startTime).Round(time.Second)
	m.renderer.Status(fmt.Sprintf("server: %s", m.cfg.ServerAddr))
	m.renderer.Status(fmt.Sprintf("room: %s, username: %s", room, username))
	m.renderer.Status(fmt.Sprintf("connection: %s, users in room: %d", state, users))
	m.renderer.Status(fmt.Sprintf("messages sent: %d, uptime: %s", count, uptime))
	if !heartbeat.IsZero() {
		m.renderer.Status(fmt.Sprintf("last heartbeat: %s ago", time.Since(heartbeat).Round(time.Second)))
	}
}

func (m *Manager) showHistory() {
	m.mu.Lock()
	recent := m.history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	recent = append([]types.Message(nil), recent...)
	m.mu.Unlock()

	if len(recent) == 0 {
		m.renderer.Info("no messages in history")
		return
	}
	for _, msg := range recent {
		m.renderer.Info(fmt.Sprintf("%s %s: %s",
			msg.Timestamp.Local().Format("15:04:05"), msg.Username, msg.Content))
	}
}
