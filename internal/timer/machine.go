// Package timer 专注计时器状态机。
//
// Transition 是纯函数：输入当前 Session 与事件，返回新 Session 与副作用列表，
// 副作用（记录会话、完成任务、启停刷新）由调用方执行。Runner 负责把它接到真实时钟上。
package timer

import "time"

// Mode 计时模式
type Mode string

const (
	ModeCountdown Mode = "countdown"
	ModeStopwatch Mode = "stopwatch"
)

// Valid 是否为合法模式
func (m Mode) Valid() bool {
	return m == ModeCountdown || m == ModeStopwatch
}

// State 计时状态
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

const (
	DefaultCountdownMinutes = 60
	MinCountdownMinutes     = 1
	MaxCountdownMinutes     = 600
	// TickInterval 运行中的刷新间隔
	TickInterval = 250 * time.Millisecond
	// DefaultTitle 未绑定任务时的会话标题
	DefaultTitle = "专注"
)

// Session 运行时计时状态，不持久化
type Session struct {
	Mode              Mode
	State             State
	StartedAt         time.Time
	PausedAt          time.Time
	PausedAccumulated time.Duration
	CountdownTarget   time.Duration
	BoundTask         *int
	Title             string
}

// NewSession 默认倒计时 60 分钟
func NewSession() Session {
	return Session{
		Mode:            ModeCountdown,
		State:           StateIdle,
		CountdownTarget: time.Duration(DefaultCountdownMinutes) * time.Minute,
		Title:           DefaultTitle,
	}
}

// Started 是否已真正开始计时
func (s Session) Started() bool {
	return !s.StartedAt.IsZero()
}

// Elapsed 已计时长（不含暂停区间）
func (s Session) Elapsed(now time.Time) time.Duration {
	if !s.Started() {
		return 0
	}
	ref := now
	if s.State == StatePaused && !s.PausedAt.IsZero() {
		ref = s.PausedAt
	}
	d := ref.Sub(s.StartedAt) - s.PausedAccumulated
	if d < 0 {
		return 0
	}
	return d
}

// Remaining 倒计时剩余时长，正计时恒为 0
func (s Session) Remaining(now time.Time) time.Duration {
	if s.Mode != ModeCountdown {
		return 0
	}
	return s.CountdownTarget - s.Elapsed(now)
}

// ClampMinutes 倒计时分钟数限制在 1..600
func ClampMinutes(m int) int {
	if m < MinCountdownMinutes {
		return MinCountdownMinutes
	}
	if m > MaxCountdownMinutes {
		return MaxCountdownMinutes
	}
	return m
}

// ── 事件与副作用 ──

// EventKind 事件类型
type EventKind string

const (
	EventStart        EventKind = "start"
	EventPause        EventKind = "pause"
	EventResume       EventKind = "resume"
	EventReset        EventKind = "reset"
	EventFinish       EventKind = "finish"
	EventStop         EventKind = "stop"
	EventTick         EventKind = "tick"
	EventBind         EventKind = "bind"
	EventSetMode      EventKind = "set_mode"
	EventSetCountdown EventKind = "set_countdown"
)

// Event 一次状态机输入，At 为事件发生时刻
type Event struct {
	Kind    EventKind
	At      time.Time
	Task    *int
	Title   string
	Mode    Mode
	Minutes int
}

// EffectKind 副作用类型
type EffectKind string

const (
	EffectEmitSession  EffectKind = "emit_session"
	EffectCompleteTask EffectKind = "complete_task"
	EffectStartTicking EffectKind = "start_ticking"
	EffectStopTicking  EffectKind = "stop_ticking"
)

// Record 一次专注会话记录，生成后不再修改
type Record struct {
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Mode      Mode      `json:"mode"`
	Completed bool      `json:"completed"`
}

// Effect 状态转换产生的副作用
type Effect struct {
	Kind      EffectKind
	Record    *Record
	TaskIndex int
}

// Transition 状态机转换。非法事件原样返回 s，不产生副作用。
func Transition(s Session, ev Event) (Session, []Effect) {
	switch ev.Kind {
	case EventStart:
		switch s.State {
		case StateIdle:
			s.State = StateRunning
			s.StartedAt = ev.At
			s.PausedAccumulated = 0
			s.PausedAt = time.Time{}
			return s, []Effect{{Kind: EffectStartTicking}}
		case StatePaused:
			// 暂停状态下再次 start 视为继续
			return resume(s, ev.At)
		}

	case EventPause:
		if s.State == StateRunning {
			s.State = StatePaused
			s.PausedAt = ev.At
			return s, []Effect{{Kind: EffectStopTicking}}
		}

	case EventResume:
		if s.State == StatePaused {
			return resume(s, ev.At)
		}

	case EventReset:
		var effects []Effect
		if s.State == StateRunning {
			effects = append(effects, Effect{Kind: EffectStopTicking})
		}
		return clearTiming(s), effects

	case EventFinish:
		return end(s, ev.At, true)

	case EventStop:
		if s.State == StateRunning || s.State == StatePaused {
			return end(s, ev.At, false)
		}
		// 未开始时退出：仅清理状态与绑定
		s = clearTiming(s)
		s.BoundTask = nil
		s.Title = DefaultTitle
		return s, nil

	case EventTick:
		if s.State == StateRunning && s.Mode == ModeCountdown && s.Remaining(ev.At) <= 0 {
			return end(s, ev.At, true)
		}

	case EventBind:
		if s.State == StateIdle {
			s.BoundTask = ev.Task
			s.Title = ev.Title
			if s.Title == "" {
				s.Title = DefaultTitle
			}
		}

	case EventSetMode:
		if s.State == StateIdle && ev.Mode.Valid() {
			s.Mode = ev.Mode
		}

	case EventSetCountdown:
		if s.State == StateIdle {
			s.CountdownTarget = time.Duration(ClampMinutes(ev.Minutes)) * time.Minute
		}
	}
	return s, nil
}

func resume(s Session, at time.Time) (Session, []Effect) {
	if !s.PausedAt.IsZero() && at.After(s.PausedAt) {
		s.PausedAccumulated += at.Sub(s.PausedAt)
	}
	s.PausedAt = time.Time{}
	s.State = StateRunning
	return s, []Effect{{Kind: EffectStartTicking}}
}

// end 处理 finish/stop。未开始时不生成记录，但 finish 仍会完成绑定任务。
func end(s Session, at time.Time, completed bool) (Session, []Effect) {
	var effects []Effect
	if s.State == StateRunning {
		effects = append(effects, Effect{Kind: EffectStopTicking})
	}
	if s.Started() {
		rec := s.record(at, completed)
		effects = append(effects, Effect{Kind: EffectEmitSession, Record: &rec})
	}
	if completed && s.BoundTask != nil {
		effects = append(effects, Effect{Kind: EffectCompleteTask, TaskIndex: *s.BoundTask})
	}
	s = clearTiming(s)
	s.BoundTask = nil
	s.Title = DefaultTitle
	return s, effects
}

// record 结束时刻取 finish/stop 发生的时刻；倒计时截断在 start+暂停+目标
func (s Session) record(at time.Time, completed bool) Record {
	endAt := at
	if s.Mode == ModeCountdown {
		target := s.StartedAt.Add(s.PausedAccumulated + s.CountdownTarget)
		if endAt.After(target) {
			endAt = target
		}
	}
	if endAt.Before(s.StartedAt) {
		endAt = s.StartedAt
	}
	return Record{
		Title:     s.Title,
		Start:     s.StartedAt,
		End:       endAt,
		Mode:      s.Mode,
		Completed: completed,
	}
}

func clearTiming(s Session) Session {
	s.State = StateIdle
	s.StartedAt = time.Time{}
	s.PausedAt = time.Time{}
	s.PausedAccumulated = 0
	return s
}
