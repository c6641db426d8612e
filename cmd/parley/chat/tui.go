package chatcmder

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/termview"
)

var (
	tuiTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	tuiMutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tuiDividerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	tuiUserStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	tuiAssistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	tuiConnectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	tuiDisconnectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	tuiNoticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// chromeHeight is the number of lines around the transcript: header, rule,
// indicator, input and help.
const chromeHeight = 5

type chatKeyMap struct {
	Send     key.Binding
	Clear    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Clear, k.PageUp, k.PageDown, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Clear}, {k.PageUp, k.PageDown, k.Quit}}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// updateMsg carries a turn update from the streaming goroutine.
type updateMsg chat.Update

type turnDoneMsg struct {
	err error
}

type clearedMsg struct {
	err error
}

// relay forwards messages from the turn goroutine to the running program.
type relay struct {
	mu      sync.Mutex
	program *bubbletea.Program
}

func (r *relay) attach(p *bubbletea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = p
}

func (r *relay) send(msg bubbletea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

type chatModel struct {
	ctx       context.Context
	session   *chat.Session
	target    string
	wrapWidth uint
	logger    *slog.Logger
	relay     *relay

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     chatKeyMap
	help     help.Model
	styles   termview.Styles

	width     int
	height    int
	streaming bool
	notice    string
}

func runTUI(ctx context.Context, session *chat.Session, target string, wrapWidth uint, log *slog.Logger) error {
	model := newChatModel(ctx, session, target, wrapWidth, log)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	model.relay.attach(program)

	_, err := program.Run()
	return err
}

func newChatModel(ctx context.Context, session *chat.Session, target string, wrapWidth uint, log *slog.Logger) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.Prompt = "> "
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = tuiAssistantStyle

	m := chatModel{
		ctx:       ctx,
		session:   session,
		target:    target,
		wrapWidth: wrapWidth,
		logger:    logger.OrNop(log),
		relay:     &relay{},
		viewport:  viewport.New(80, 20),
		input:     input,
		spinner:   spin,
		keys:      defaultKeyMap(),
		help:      help.New(),
		styles:    termview.NewStyles(nil),
		width:     80,
		height:    20 + chromeHeight,
	}
	m.refresh()
	return m
}

func (m chatModel) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeHeight)
		m.input.Width = max(1, msg.Width-len(m.input.Prompt)-1)
		m.refresh()
		return m, nil

	case updateMsg:
		m.refresh()
		return m, nil

	case turnDoneMsg:
		m.streaming = false
		if msg.err != nil {
			m.logger.Debug("turn ended with error", "error", msg.err)
		}
		m.refresh()
		return m, nil

	case clearedMsg:
		if msg.err != nil {
			m.notice = "clear failed: " + msg.err.Error()
		} else {
			m.notice = ""
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m chatModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		return m.submit(text)

	case key.Matches(msg, m.keys.Clear):
		return m.clear()

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) submit(text string) (bubbletea.Model, bubbletea.Cmd) {
	switch text {
	case "":
		return m, nil
	case commandExit:
		return m, bubbletea.Quit
	case commandClear:
		return m.clear()
	}

	if m.streaming {
		m.notice = chat.ErrTurnInProgress.Error()
		return m, nil
	}

	m.streaming = true
	m.notice = ""

	session, ctx, r := m.session, m.ctx, m.relay
	send := func() bubbletea.Msg {
		err := session.Send(ctx, text, func(u chat.Update) {
			r.send(updateMsg(u))
		})
		return turnDoneMsg{err: err}
	}

	return m, bubbletea.Batch(send, m.spinner.Tick)
}

func (m chatModel) clear() (bubbletea.Model, bubbletea.Cmd) {
	if m.streaming {
		m.notice = chat.ErrTurnInProgress.Error()
		return m, nil
	}

	session, ctx := m.session, m.ctx
	return m, func() bubbletea.Msg {
		return clearedMsg{err: session.Clear(ctx)}
	}
}

// refresh re-renders the transcript into the viewport and keeps it scrolled
// to the newest message.
func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m chatModel) transcript() string {
	width := m.wrapWidth
	if width == 0 && m.width > 4 {
		width = uint(m.width - 2)
	}

	messages := m.session.Messages()
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		label := tuiAssistantStyle.Render("assistant")
		if msg.Role == chat.RoleUser {
			label = tuiUserStyle.Render("you")
		}

		body := termview.Render(msg.Markup,
			termview.WithWidth(width),
			termview.WithStyles(m.styles),
		)
		blocks = append(blocks, label+"\n"+body)
	}

	return strings.Join(blocks, "\n\n")
}

func (m chatModel) View() string {
	lines := []string{
		m.viewHeader(),
		tuiDividerStyle.Render(strings.Repeat("─", max(1, m.width))),
		m.viewport.View(),
		m.viewIndicator(),
		m.input.View(),
		tuiMutedStyle.Render(m.help.View(m.keys)),
	}
	return strings.Join(lines, "\n")
}

func (m chatModel) viewHeader() string {
	left := tuiTitleStyle.Render("parley") + " " + tuiMutedStyle.Render(m.target)

	status := m.session.Status()
	right := tuiConnectedStyle.Render("● " + status.String())
	if status == chat.StatusDisconnected {
		right = tuiDisconnectStyle.Render("● " + status.String())
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left + " " + right
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m chatModel) viewIndicator() string {
	if m.notice != "" {
		return tuiNoticeStyle.Render(m.notice)
	}
	if !m.streaming {
		return ""
	}

	messages := m.session.Messages()
	if last := messages[len(messages)-1]; last.Role == chat.RoleAssistant && last.Raw != "" {
		return ""
	}
	return m.spinner.View() + tuiMutedStyle.Render(" assistant is typing")
}
