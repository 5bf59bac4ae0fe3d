package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/render-worker/engine"
	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/loader"
	"github.com/wippyai/render-worker/protocol"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	fpsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	// Terminals report presses but not releases; a key counts as held
	// until no repeat arrives for this long.
	keyHold = 250 * time.Millisecond

	previewInterval = 100 * time.Millisecond
	speedStep       = 0.25
	chromeRows      = 7
)

type keyMap struct {
	Move     key.Binding
	Recenter key.Binding
	Start    key.Binding
	Stop     key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Speed    key.Binding
	Resize   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Move:     key.NewBinding(key.WithKeys("up", "down", "left", "right"), key.WithHelp("←↑↓→", "move")),
		Recenter: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "recenter")),
		Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Faster:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
		Speed:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "set speed")),
		Resize:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "fit surface")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Move, k.Start, k.Stop, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Move, k.Recenter},
		{k.Start, k.Stop, k.Resize},
		{k.Faster, k.Slower, k.Speed},
		{k.Help, k.Quit},
	}
}

// poster is the part of the engine the UI drives.
type poster interface {
	Post(cmd protocol.Command) bool
	Capture(ctx context.Context, width, height int) (*image.RGBA, error)
}

type eventMsg struct {
	ev protocol.Event
}

type releaseMsg struct {
	key protocol.Key
	seq int
}

type previewTickMsg struct{}

type previewMsg struct {
	img *image.RGBA
	err error
}

type interactiveModel struct {
	engine     poster
	held       map[protocol.Key]int
	keys       keyMap
	help       help.Model
	speedInput textinput.Model
	status     string
	errText    string
	preview    string
	speed      float64
	seq        int
	fps        int
	width      int
	height     int
	surfaceW   int
	surfaceH   int
	editing    bool
	ready      bool
}

func newInteractiveModel(e poster, speed float64, surfaceW, surfaceH int) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "speed: "
	ti.Placeholder = strconv.FormatFloat(speed, 'f', -1, 64)
	ti.CharLimit = 16
	ti.Width = 20

	return &interactiveModel{
		engine:     e,
		held:       make(map[protocol.Key]int),
		keys:       newKeyMap(),
		help:       help.New(),
		speedInput: ti,
		speed:      speed,
		surfaceW:   surfaceW,
		surfaceH:   surfaceH,
		status:     "starting",
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return previewTick()
}

func previewTick() tea.Cmd {
	return tea.Tick(previewInterval, func(time.Time) tea.Msg { return previewTickMsg{} })
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m.apply(msg.ev)
		return m, nil

	case releaseMsg:
		if m.held[msg.key] == msg.seq {
			delete(m.held, msg.key)
			m.engine.Post(protocol.KeyEvent{Key: msg.key, Action: protocol.KeyUp})
		}
		return m, nil

	case previewTickMsg:
		return m, m.capture()

	case previewMsg:
		if msg.err == nil && msg.img != nil {
			m.preview = renderPreview(msg.img)
		}
		return m, previewTick()

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m, m.editSpeed(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *interactiveModel) apply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.Status:
		m.status = ev.Status
	case protocol.Initialized:
		m.ready = true
		m.errText = ""
	case protocol.FPS:
		m.fps = ev.FPS
	case protocol.Error:
		m.errText = ev.Message
	}
}

func (m *interactiveModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if k, ok := keyFor(msg); ok {
		return m.press(k)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.Post(protocol.Terminate{})
		return tea.Quit
	case key.Matches(msg, m.keys.Start):
		m.engine.Post(protocol.Start{})
	case key.Matches(msg, m.keys.Stop):
		m.engine.Post(protocol.Stop{})
	case key.Matches(msg, m.keys.Faster):
		m.setSpeed(m.speed + speedStep)
	case key.Matches(msg, m.keys.Slower):
		m.setSpeed(m.speed - speedStep)
	case key.Matches(msg, m.keys.Speed):
		m.editing = true
		m.speedInput.SetValue("")
		return m.speedInput.Focus()
	case key.Matches(msg, m.keys.Resize):
		w, h := m.previewSize()
		if w > 0 && h > 0 {
			m.surfaceW, m.surfaceH = w*8, h*8
			m.engine.Post(protocol.Resize{Width: m.surfaceW, Height: m.surfaceH})
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

func (m *interactiveModel) editSpeed(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		if v, err := strconv.ParseFloat(strings.TrimSpace(m.speedInput.Value()), 64); err == nil {
			m.setSpeed(v)
		} else {
			m.errText = fmt.Sprintf("invalid speed %q", m.speedInput.Value())
		}
		m.editing = false
		m.speedInput.Blur()
		return nil
	case tea.KeyEsc:
		m.editing = false
		m.speedInput.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.speedInput, cmd = m.speedInput.Update(msg)
	return cmd
}

func (m *interactiveModel) setSpeed(v float64) {
	m.speed = v
	m.speedInput.Placeholder = strconv.FormatFloat(v, 'f', -1, 64)
	m.engine.Post(protocol.SetSpeed{Speed: v})
}

// press sends key down on the first press and schedules the synthetic
// release. Repeats only push the release back.
func (m *interactiveModel) press(k protocol.Key) tea.Cmd {
	if _, held := m.held[k]; !held {
		m.engine.Post(protocol.KeyEvent{Key: k, Action: protocol.KeyDown})
	}
	m.seq++
	seq := m.seq
	m.held[k] = seq
	return tea.Tick(keyHold, func(time.Time) tea.Msg { return releaseMsg{key: k, seq: seq} })
}

func keyFor(msg tea.KeyMsg) (protocol.Key, bool) {
	switch msg.Type {
	case tea.KeyUp:
		return protocol.KeyArrowUp, true
	case tea.KeyDown:
		return protocol.KeyArrowDown, true
	case tea.KeyLeft:
		return protocol.KeyArrowLeft, true
	case tea.KeyRight:
		return protocol.KeyArrowRight, true
	case tea.KeySpace:
		return protocol.KeySpace, true
	}
	return "", false
}

// mouse maps a terminal cell inside the preview onto surface pixels.
func (m *interactiveModel) mouse(msg tea.MouseMsg) {
	cols, rows := m.previewSize()
	top := 2
	if cols == 0 || rows == 0 || msg.Y < top || msg.Y >= top+rows || msg.X >= cols {
		return
	}
	x := (float64(msg.X) + 0.5) * float64(m.surfaceW) / float64(cols)
	y := (float64(msg.Y-top) + 0.5) * float64(m.surfaceH) / float64(rows)

	switch msg.Action {
	case tea.MouseActionMotion:
		m.engine.Post(protocol.MouseMove{X: x, Y: y})
	case tea.MouseActionPress, tea.MouseActionRelease:
		button, ok := domButton(msg.Button)
		if !ok {
			return
		}
		action := 0
		if msg.Action == tea.MouseActionPress {
			action = 1
		}
		m.engine.Post(protocol.MouseButton{Button: button, Action: action, X: x, Y: y})
	}
}

// domButton maps terminal buttons onto MouseEvent.button numbering.
func domButton(b tea.MouseButton) (int, bool) {
	switch b {
	case tea.MouseButtonLeft:
		return 0, true
	case tea.MouseButtonMiddle:
		return 1, true
	case tea.MouseButtonRight:
		return 2, true
	}
	return 0, false
}

// previewSize is the preview area in terminal cells.
func (m *interactiveModel) previewSize() (cols, rows int) {
	if m.width <= 0 || m.height <= chromeRows {
		return 0, 0
	}
	cols = min(m.width, 120)
	rows = m.height - chromeRows
	return cols, rows
}

func (m *interactiveModel) capture() tea.Cmd {
	cols, rows := m.previewSize()
	if cols == 0 || !m.ready {
		return previewTick()
	}
	e := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		img, err := e.Capture(ctx, cols, rows*2)
		return previewMsg{img: img, err: err}
	}
}

// renderPreview draws img with upper half blocks: two pixel rows per
// terminal row. Runs of equal cells share one style.
func renderPreview(img *image.RGBA) string {
	b := img.Bounds()
	var out strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var runTop, runBottom color.RGBA
		run := 0
		flush := func() {
			if run == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hexColor(runTop))).
				Background(lipgloss.Color(hexColor(runBottom)))
			out.WriteString(style.Render(strings.Repeat("▀", run)))
			run = 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)
			bottom := top
			if y+1 < b.Max.Y {
				bottom = img.RGBAAt(x, y+1)
			}
			if run > 0 && (top != runTop || bottom != runBottom) {
				flush()
			}
			runTop, runBottom = top, bottom
			run++
		}
		flush()
		if y+2 < b.Max.Y {
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Render Worker"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%dx%d", m.surfaceW, m.surfaceH))
	b.WriteString("\n\n")

	if m.preview != "" {
		b.WriteString(m.preview)
	} else {
		b.WriteString("Loading module...")
	}
	b.WriteString("\n\n")

	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("  ")
	b.WriteString(fpsStyle.Render(fmt.Sprintf("%d fps", m.fps)))
	b.WriteString("  ")
	b.WriteString(fmt.Sprintf("speed %s", strconv.FormatFloat(m.speed, 'f', -1, 64)))
	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.errText))
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(m.speedInput.View())
		b.WriteString(" ")
		b.WriteString(helpStyle.Render("enter apply • esc cancel"))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func runInteractive(ctx context.Context, src loader.Source, cfg engine.Config, o options) error {
	speed := o.speed
	if speed == 0 {
		speed = engine.DefaultConfig().DefaultSpeed
	}

	var p *tea.Program
	e := newEngine(src, cfg, engine.SinkFunc(func(ev protocol.Event) {
		p.Send(eventMsg{ev: ev})
	}))
	m := newInteractiveModel(e, speed, o.width, o.height)
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = e.Run(runCtx) }()
	e.Post(protocol.Init{Surface: protocol.SurfaceDescriptor{Width: o.width, Height: o.height}})

	_, err := p.Run()
	e.Post(protocol.Terminate{})
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		cancel()
		<-e.Done()
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
