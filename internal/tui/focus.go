package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/timer"
)

// tickMsg 由 tea.Tick 投递；gen 与模型不一致时丢弃，避免暂停后残留的刷新
type tickMsg struct {
	gen uint64
	at  time.Time
}

// FocusModel 终端专注计时器，直接驱动 timer.Transition
type FocusModel struct {
	session  timer.Session
	interval time.Duration
	now      func() time.Time
	gen      uint64
	records  []timer.Record
	quitting bool
}

// NewFocusModel 以给定模式、倒计时分钟数与标题创建空闲状态的计时器
func NewFocusModel(mode timer.Mode, minutes int, title string) FocusModel {
	m := FocusModel{
		session:  timer.NewSession(),
		interval: timer.TickInterval,
		now:      time.Now,
	}
	at := m.now()
	m.session, _ = timer.Transition(m.session, timer.Event{Kind: timer.EventSetMode, At: at, Mode: mode})
	m.session, _ = timer.Transition(m.session, timer.Event{Kind: timer.EventSetCountdown, At: at, Minutes: minutes})
	m.session, _ = timer.Transition(m.session, timer.Event{Kind: timer.EventBind, At: at, Title: title})
	return m
}

// Records 本次运行产生的专注记录
func (m FocusModel) Records() []timer.Record {
	return m.records
}

// Session 当前状态机快照
func (m FocusModel) Session() timer.Session {
	return m.session
}

// Init implements tea.Model.
func (m FocusModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m FocusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.apply(timer.Event{Kind: timer.EventTick, At: msg.at})
		if m.session.State == timer.StateIdle {
			// 倒计时自然结束
			m.quitting = true
			return m, tea.Quit
		}
		if cmd == nil {
			cmd = m.scheduleTick()
		}
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case " ", "p":
			kind := timer.EventStart
			if m.session.State == timer.StateRunning {
				kind = timer.EventPause
			}
			return m.apply(timer.Event{Kind: kind, At: m.now()})
		case "r":
			return m.apply(timer.Event{Kind: timer.EventReset, At: m.now()})
		case "f":
			m, _ = m.apply(timer.Event{Kind: timer.EventFinish, At: m.now()})
			m.quitting = true
			return m, tea.Quit
		case "s", "q", "esc", "ctrl+c":
			m, _ = m.apply(timer.Event{Kind: timer.EventStop, At: m.now()})
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// apply 执行一次状态转换并把副作用翻译为 tea.Cmd
func (m FocusModel) apply(ev timer.Event) (FocusModel, tea.Cmd) {
	var effects []timer.Effect
	m.session, effects = timer.Transition(m.session, ev)

	var cmd tea.Cmd
	for _, eff := range effects {
		switch eff.Kind {
		case timer.EffectEmitSession:
			m.records = append(m.records, *eff.Record)
		case timer.EffectStartTicking:
			m.gen++
			cmd = m.scheduleTick()
		case timer.EffectStopTicking:
			m.gen++
			cmd = nil
		}
	}
	return m, cmd
}

func (m FocusModel) scheduleTick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg{gen: gen, at: t}
	})
}

// View implements tea.Model.
func (m FocusModel) View() string {
	if m.quitting {
		return ""
	}
	now := m.now()
	var display string
	if m.session.Mode == timer.ModeCountdown {
		display = calendar.FormatHMS(m.session.Remaining(now).Milliseconds())
	} else {
		display = calendar.FormatHMS(m.session.Elapsed(now).Milliseconds())
	}

	state := map[timer.State]string{
		timer.StateIdle:    "未开始",
		timer.StateRunning: "专注中",
		timer.StatePaused:  "已暂停",
	}[m.session.State]
	mode := "倒计时"
	if m.session.Mode == timer.ModeStopwatch {
		mode = "正计时"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.session.Title))
	b.WriteString("\n")
	b.WriteString(clockStyle.Render(display))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %s", mode, state)))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("空格 开始/暂停  f 完成  r 重置  s 退出"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
