// Command voxdemo is an interactive terminal client for the voice
// session engine. It captures microphone audio, streams it to the
// session relay, plays the assistant's replies, and shows the live
// transcript and agent handoffs.
//
// Environment variables (a .env file in the working directory is
// loaded first):
//
//	VOX_GATEWAY_URL        - relay endpoint (required)
//	VOX_GATEWAY_TOKEN      - relay bearer token (required)
//	VOX_DIRECTORY_URL      - agent directory endpoint (optional)
//	VOX_VOICE_ID           - assistant voice (optional)
//	VOX_SYSTEM_PROMPT      - system prompt override (optional)
//	VOX_INACTIVITY_TIMEOUT - inactivity window as a Go duration (optional)
//
// Controls:
//
//	enter/space - start or stop the voice session
//	k           - extend the inactivity window without speaking
//	q           - quit
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/muesli/reflow/wordwrap"

	voicesession "github.com/adastralabs/vox-core/core"
	"github.com/adastralabs/vox-core/core/audio/miniaudio"
	"github.com/adastralabs/vox-core/core/directory"
	"github.com/adastralabs/vox-core/core/events"
	"github.com/adastralabs/vox-core/core/gateway/relay"
	"github.com/adastralabs/vox-core/core/protocol"
)

const (
	startTimeout = 15 * time.Second
	stopTimeout  = 5 * time.Second
)

// defaultRouteTargets stands in for the agent directory when none is
// configured, so the demo works against a bare relay.
var defaultRouteTargets = []voicesession.RouteTarget{
	{Name: "Pricing", Description: "Answers pricing, budget, and billing questions"},
	{Name: "Creative", Description: "Reviews and drafts ad creative"},
	{Name: "Planning", Description: "Builds and adjusts campaign plans"},
}

func main() {
	_ = godotenv.Load()

	if os.Getenv("VOX_GATEWAY_URL") == "" {
		log.Fatal("VOX_GATEWAY_URL required")
	}
	if os.Getenv("VOX_GATEWAY_TOKEN") == "" {
		log.Fatal("VOX_GATEWAY_TOKEN required")
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize audio: %v", err)
	}
	defer audioClient.Close()

	engineOpts := []voicesession.Option{
		voicesession.WithDialer(relay.NewClient()),
		voicesession.WithAudioCapture(audioClient),
	}
	if voice := os.Getenv("VOX_VOICE_ID"); voice != "" {
		engineOpts = append(engineOpts, voicesession.WithVoice(voice))
	}
	if window := os.Getenv("VOX_INACTIVITY_TIMEOUT"); window != "" {
		parsed, err := time.ParseDuration(window)
		if err != nil {
			log.Fatalf("Invalid VOX_INACTIVITY_TIMEOUT %q: %v", window, err)
		}
		engineOpts = append(engineOpts, voicesession.WithInactivityTimeout(parsed))
	}

	engine, err := voicesession.New(engineOpts...)
	if err != nil {
		log.Fatalf("Failed to build the voice session engine: %v", err)
	}
	defer engine.Close()

	targets := defaultRouteTargets
	if directoryURL := os.Getenv("VOX_DIRECTORY_URL"); directoryURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		resolved, err := directory.NewClient(directoryURL).RouteTargets(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to resolve the agent directory: %v", err)
		}
		if len(resolved) > 0 {
			targets = resolved
		}
	}

	sessionOpts := []voicesession.SessionOption{voicesession.WithRouteTargets(targets...)}
	if prompt := os.Getenv("VOX_SYSTEM_PROMPT"); prompt != "" {
		sessionOpts = append(sessionOpts, voicesession.WithSystemPrompt(prompt))
	}

	program := tea.NewProgram(newModel(engine, audioClient, targets, sessionOpts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("Demo exited with an error: %v", err)
	}
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7dd3fc"))
	stateStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#fbbf24"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3a3a3"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ade80"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c084fc"))
	handoffStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fbbf24"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#525252"))
	micStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
)

type sessionEventMsg struct{ event events.Event }

type streamClosedMsg struct{}

type sessionStartedMsg struct{ err error }

type sessionStoppedMsg struct{ err error }

type transcriptLine struct {
	role string
	text string
}

type model struct {
	engine      *voicesession.Engine
	audio       *miniaudio.Client
	stream      <-chan events.Event
	targets     []voicesession.RouteTarget
	sessionOpts []voicesession.SessionOption

	spinner    spinner.Model
	transcript viewport.Model
	ready      bool

	sessionState string
	status       string
	lastErr      string
	lines        []transcriptLine
	lastMicFrame time.Time
	busy         bool
}

func newModel(engine *voicesession.Engine, audioClient *miniaudio.Client, targets []voicesession.RouteTarget, sessionOpts []voicesession.SessionOption) model {
	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dd3fc"))

	return model{
		engine:       engine,
		audio:        audioClient,
		stream:       engine.Events(),
		targets:      targets,
		sessionOpts:  sessionOpts,
		spinner:      sp,
		transcript:   viewport.New(0, 0),
		sessionState: string(voicesession.StateIdle),
		status:       "press enter to start talking",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.stream))
}

func waitForEvent(stream <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-stream
		if !ok {
			return streamClosedMsg{}
		}
		return sessionEventMsg{event: event}
	}
}

func (m model) startSessionCmd() tea.Cmd {
	engine, audioClient, opts := m.engine, m.audio, m.sessionOpts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()

		if err := engine.Start(ctx, opts...); err != nil {
			return sessionStartedMsg{err: err}
		}
		if err := audioClient.StartPlayback(ctx); err != nil {
			return sessionStartedMsg{err: fmt.Errorf("failed to start playback: %w", err)}
		}
		return sessionStartedMsg{}
	}
}

func (m model) stopSessionCmd() tea.Cmd {
	engine, audioClient := m.engine, m.audio
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()

		err := engine.Stop(ctx)
		audioClient.ClearPlayback()
		return sessionStoppedMsg{err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter", " ":
			if m.busy {
				return m, nil
			}
			m.busy = true
			if m.engine.IsActive() {
				m.status = "stopping session..."
				return m, m.stopSessionCmd()
			}
			m.lastErr = ""
			m.status = "starting session..."
			return m, m.startSessionCmd()
		case "k":
			if m.engine.IsActive() {
				m.engine.KeepAlive()
				m.status = "inactivity window extended"
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		headerHeight := 4
		footerHeight := 3
		m.transcript.Width = msg.Width
		m.transcript.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.ready = true
		m.refreshTranscript()
		return m, nil

	case sessionStartedMsg:
		m.busy = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.status = "session failed to start"
		} else {
			m.status = "listening, speak naturally"
		}
		return m, nil

	case sessionStoppedMsg:
		m.busy = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		m.status = "press enter to start talking"
		return m, nil

	case sessionEventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(m.stream)

	case streamClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m *model) applyEvent(event events.Event) {
	switch event := event.(type) {
	case events.TranscriptSegment:
		m.appendTranscript(event.Role, event.Text)

	case events.AssistantSpeechFrame:
		if err := m.audio.Play(event.Audio); err != nil {
			m.lastErr = "playback: " + err.Error()
		}

	case events.UserAudioFrame:
		m.lastMicFrame = time.Now()

	case events.StateChanged:
		m.sessionState = event.To

	case events.ToolCallStarted:
		m.status = "routing request..."

	case events.ToolCallCompleted:
		m.status = "handed off to " + event.Target
		m.appendHandoff(fmt.Sprintf("[handed off to %s]", event.Target))

	case events.ToolCallFailed:
		m.status = "routing failed: " + event.Error

	case events.TurnCompleted:
		m.status = "turn complete, still listening"

	case events.InactivityTimeout:
		m.status = fmt.Sprintf("idle for %s, session draining", event.Idle.Round(time.Second))

	case events.SessionError:
		if event.Fatal {
			m.lastErr = fmt.Sprintf("%s: %s", event.Code, event.Message)
		} else {
			m.status = fmt.Sprintf("gateway reported %s", event.Code)
		}

	case events.SessionEnded:
		m.status = "session ended, press enter to start again"
		m.audio.ClearPlayback()
	}
}

func (m *model) appendTranscript(role, text string) {
	if n := len(m.lines); n > 0 && m.lines[n-1].role == role {
		m.lines[n-1].text = joinSegments(m.lines[n-1].text, text)
	} else {
		m.lines = append(m.lines, transcriptLine{role: role, text: text})
	}
	m.refreshTranscript()
}

func (m *model) appendHandoff(text string) {
	m.lines = append(m.lines, transcriptLine{text: text})
	m.refreshTranscript()
}

func joinSegments(existing, next string) string {
	if existing == "" {
		return next
	}
	if strings.HasSuffix(existing, " ") || strings.HasPrefix(next, " ") {
		return existing + next
	}
	return existing + " " + next
}

func (m *model) refreshTranscript() {
	if !m.ready {
		return
	}

	width := m.transcript.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	for _, line := range m.lines {
		switch line.role {
		case protocol.RoleUser:
			b.WriteString(userStyle.Render("you") + " " + wordwrap.String(line.text, width-6))
		case protocol.RoleAssistant:
			b.WriteString(assistantStyle.Render("vox") + " " + wordwrap.String(line.text, width-6))
		default:
			b.WriteString(handoffStyle.Render(wordwrap.String(line.text, width)))
		}
		b.WriteString("\n\n")
	}

	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	title := titleStyle.Render("vox voice session")
	state := stateStyle.Render("[" + m.sessionState + "]")
	header := title + " " + state
	if m.engine.IsActive() || m.busy {
		header += " " + m.spinner.View()
	}
	if m.engine.IsActive() && time.Since(m.lastMicFrame) < 400*time.Millisecond {
		header += " " + micStyle.Render("● mic")
	}

	names := make([]string, 0, len(m.targets))
	for _, target := range m.targets {
		names = append(names, target.Name)
	}
	agents := statusStyle.Render("agents: " + strings.Join(names, ", "))

	status := statusStyle.Render(m.status)
	if m.lastErr != "" {
		status = errorStyle.Render(m.lastErr)
	}

	help := helpStyle.Render("enter/space: start or stop session   k: keep alive   q: quit")

	return strings.Join([]string{
		header,
		agents,
		"",
		m.transcript.View(),
		"",
		status,
		help,
	}, "\n")
}
