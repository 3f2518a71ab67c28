package timer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink 执行状态机副作用
type Sink interface {
	RecordSession(ctx context.Context, rec Record) error
	CompleteTask(ctx context.Context, index int) error
}

// Status 计时器当前状态快照
type Status struct {
	Mode            Mode          `json:"mode"`
	State           State         `json:"state"`
	Title           string        `json:"title"`
	BoundTask       *int          `json:"bound_task,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	Elapsed         time.Duration `json:"-"`
	Remaining       time.Duration `json:"-"`
	CountdownTarget time.Duration `json:"-"`
}

// Runner 持有一个 Session，把状态机接到时钟与 Sink 上。
// 运行中按 interval 周期发送 tick，离开 running 即取消。
type Runner struct {
	mu       sync.Mutex
	session  Session
	clock    Clock
	sink     Sink
	logger   *zap.Logger
	interval time.Duration

	// generation 每次启动刷新递增，旧 goroutine 的 tick 直接丢弃
	generation uint64
	done       chan struct{}
}

// RunnerOption 可选配置
type RunnerOption func(*Runner)

// WithInterval 设置刷新间隔
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithSession 设置初始状态（例如配置中的默认倒计时）
func WithSession(s Session) RunnerOption {
	return func(r *Runner) { r.session = s }
}

// NewRunner 创建 Runner
func NewRunner(clock Clock, sink Sink, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		session:  NewSession(),
		clock:    clock,
		sink:     sink,
		logger:   logger,
		interval: TickInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch 以当前时刻执行一次事件，返回转换后的状态。
// 状态非法的事件为空操作；仅 Sink 失败时返回错误。
func (r *Runner) Dispatch(ctx context.Context, ev Event) (Status, error) {
	r.mu.Lock()
	if ev.At.IsZero() {
		ev.At = r.clock.Now()
	}
	effects := r.applyLocked(ev)
	status := r.statusLocked(ev.At)
	r.mu.Unlock()

	return status, r.runSink(ctx, effects)
}

// Status 当前状态
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(r.clock.Now())
}

// Session 当前 Session 副本
func (r *Runner) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Active 是否正在计时（运行或暂停）
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.State != StateIdle
}

// Close 停止刷新 goroutine
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTickingLocked()
}

func (r *Runner) applyLocked(ev Event) []Effect {
	next, effects := Transition(r.session, ev)
	r.session = next
	for _, e := range effects {
		switch e.Kind {
		case EffectStartTicking:
			r.startTickingLocked()
		case EffectStopTicking:
			r.stopTickingLocked()
		}
	}
	return effects
}

func (r *Runner) runSink(ctx context.Context, effects []Effect) error {
	if r.sink == nil {
		return nil
	}
	var firstErr error
	for _, e := range effects {
		var err error
		switch e.Kind {
		case EffectEmitSession:
			err = r.sink.RecordSession(ctx, *e.Record)
		case EffectCompleteTask:
			err = r.sink.CompleteTask(ctx, e.TaskIndex)
		default:
			continue
		}
		if err != nil {
			r.logger.Warn("计时器副作用执行失败", zap.String("effect", string(e.Kind)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Runner) startTickingLocked() {
	r.stopTickingLocked()
	r.generation++
	done := make(chan struct{})
	r.done = done
	go r.loop(r.generation, r.clock.NewTicker(r.interval), done)
}

func (r *Runner) stopTickingLocked() {
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
}

func (r *Runner) loop(gen uint64, t Ticker, done <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C():
			r.tick(gen)
		}
	}
}

func (r *Runner) tick(gen uint64) {
	r.mu.Lock()
	if gen != r.generation || r.session.State != StateRunning {
		r.mu.Unlock()
		return
	}
	now := r.clock.Now()
	effects := r.applyLocked(Event{Kind: EventTick, At: now})
	r.mu.Unlock()

	if len(effects) == 0 {
		return
	}
	r.logger.Info("倒计时结束，自动完成", zap.Time("at", now))
	_ = r.runSink(context.Background(), effects)
}

func (r *Runner) statusLocked(now time.Time) Status {
	s := r.session
	st := Status{
		Mode:            s.Mode,
		State:           s.State,
		Title:           s.Title,
		BoundTask:       s.BoundTask,
		Elapsed:         s.Elapsed(now),
		Remaining:       s.Remaining(now),
		CountdownTarget: s.CountdownTarget,
	}
	if s.Started() {
		t := s.StartedAt
		st.StartedAt = &t
	}
	return st
}
