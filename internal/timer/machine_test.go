package timer

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 9, 16, 9, 0, 0, 0, time.UTC)

func at(ms int64) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func intPtr(i int) *int { return &i }

func findEffect(effects []Effect, kind EffectKind) *Effect {
	for i := range effects {
		if effects[i].Kind == kind {
			return &effects[i]
		}
	}
	return nil
}

func TestTransition_StopwatchStartFinish(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventSetMode, Mode: ModeStopwatch})
	s, eff := Transition(s, Event{Kind: EventStart, At: at(0)})
	if s.State != StateRunning || findEffect(eff, EffectStartTicking) == nil {
		t.Fatalf("start 后应进入 running 并开始刷新: %+v %+v", s, eff)
	}

	s, eff = Transition(s, Event{Kind: EventFinish, At: at(0)})
	if s.State != StateIdle {
		t.Errorf("finish 后应回到 idle, 实际 %s", s.State)
	}
	emit := findEffect(eff, EffectEmitSession)
	if emit == nil {
		t.Fatal("finish 应生成会话记录")
	}
	if emit.Record.End.Before(emit.Record.Start) || !emit.Record.Completed {
		t.Errorf("记录不合法: %+v", emit.Record)
	}
	if emit.Record.Mode != ModeStopwatch {
		t.Errorf("记录模式错误: %s", emit.Record.Mode)
	}
	if findEffect(eff, EffectStopTicking) == nil {
		t.Error("finish 应停止刷新")
	}
}

func TestTransition_PauseExcludesPausedInterval(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})
	s, _ = Transition(s, Event{Kind: EventPause, At: at(10_000)})

	// 暂停期间计时不前进
	if got := s.Elapsed(at(50_000)); got != 10*time.Second {
		t.Errorf("暂停期间 elapsed 应保持 10s, 实际 %s", got)
	}

	s, eff := Transition(s, Event{Kind: EventResume, At: at(40_000)})
	if s.State != StateRunning || findEffect(eff, EffectStartTicking) == nil {
		t.Fatalf("resume 后应回到 running")
	}
	if s.PausedAccumulated != 30*time.Second {
		t.Errorf("暂停累计应为 30s, 实际 %s", s.PausedAccumulated)
	}
	if got := s.Elapsed(at(40_000)); got != 10*time.Second {
		t.Errorf("resume 时刻 elapsed 应为 10s, 实际 %s", got)
	}
	if got := s.Elapsed(at(45_000)); got != 15*time.Second {
		t.Errorf("继续 5s 后 elapsed 应为 15s, 实际 %s", got)
	}
}

func TestTransition_StartFromPausedResumes(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})
	s, _ = Transition(s, Event{Kind: EventPause, At: at(1000)})
	s, _ = Transition(s, Event{Kind: EventStart, At: at(3000)})
	if !s.StartedAt.Equal(at(0)) {
		t.Errorf("从暂停 start 不应重置开始时间")
	}
	if s.PausedAccumulated != 2*time.Second {
		t.Errorf("从暂停 start 应累计暂停时长, 实际 %s", s.PausedAccumulated)
	}
}

func TestTransition_CountdownAutoFinishes(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventSetCountdown, Minutes: 1})
	if s.CountdownTarget != 60*time.Second {
		t.Fatalf("倒计时应为 60000ms, 实际 %s", s.CountdownTarget)
	}
	s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})

	var rec *Record
	var finishedAt int64
	for ms := int64(250); ms <= 61_000; ms += 250 {
		var eff []Effect
		s, eff = Transition(s, Event{Kind: EventTick, At: at(ms)})
		if e := findEffect(eff, EffectEmitSession); e != nil {
			rec = e.Record
			finishedAt = ms
			break
		}
	}
	if rec == nil {
		t.Fatal("倒计时到期应自动完成")
	}
	if finishedAt > 60_000 {
		t.Errorf("应在 T+60000 前完成, 实际 T+%d", finishedAt)
	}
	if s.State != StateIdle || !rec.Completed {
		t.Errorf("自动完成后应为 idle 且记录 completed: %s %+v", s.State, rec)
	}
	if !rec.End.Equal(at(60_000)) {
		t.Errorf("结束时间应为 T+60000, 实际 %s", rec.End)
	}
}

func TestTransition_CountdownEndCapped(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventSetCountdown, Minutes: 1})
	s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})
	s, _ = Transition(s, Event{Kind: EventPause, At: at(20_000)})
	s, _ = Transition(s, Event{Kind: EventResume, At: at(30_000)})
	// 错过了刷新，晚到的 finish 仍以目标时刻为结束
	_, eff := Transition(s, Event{Kind: EventFinish, At: at(500_000)})
	emit := findEffect(eff, EffectEmitSession)
	if emit == nil || !emit.Record.End.Equal(at(70_000)) {
		t.Fatalf("倒计时结束应截断在 start+暂停+目标, 实际 %+v", emit)
	}
}

func TestTransition_InvalidEventsAreNoops(t *testing.T) {
	idle := NewSession()
	for _, kind := range []EventKind{EventPause, EventResume, EventTick} {
		got, eff := Transition(idle, Event{Kind: kind, At: at(0)})
		if got != idle || len(eff) != 0 {
			t.Errorf("idle 下 %s 应为空操作", kind)
		}
	}

	running, _ := Transition(idle, Event{Kind: EventStart, At: at(0)})
	for _, ev := range []Event{
		{Kind: EventStart, At: at(5)},
		{Kind: EventResume, At: at(5)},
		{Kind: EventSetMode, Mode: ModeStopwatch},
		{Kind: EventSetCountdown, Minutes: 5},
		{Kind: EventBind, Task: intPtr(3), Title: "x"},
	} {
		got, eff := Transition(running, ev)
		if got != running || len(eff) != 0 {
			t.Errorf("running 下 %s 应为空操作", ev.Kind)
		}
	}

	paused, _ := Transition(running, Event{Kind: EventPause, At: at(10)})
	if got, eff := Transition(paused, Event{Kind: EventPause, At: at(20)}); got != paused || len(eff) != 0 {
		t.Error("paused 下 pause 应为空操作")
	}
}

func TestTransition_FinishWithoutStartCompletesTask(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventBind, Task: intPtr(2), Title: "背单词"})
	s, eff := Transition(s, Event{Kind: EventFinish, At: at(0)})
	if findEffect(eff, EffectEmitSession) != nil {
		t.Error("未开始时 finish 不应生成记录")
	}
	done := findEffect(eff, EffectCompleteTask)
	if done == nil || done.TaskIndex != 2 {
		t.Fatalf("未开始时 finish 仍应完成绑定任务: %+v", eff)
	}
	if s.BoundTask != nil {
		t.Error("finish 后应解除任务绑定")
	}
}

func TestTransition_StopOnlyRecordsWhenStarted(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventBind, Task: intPtr(0), Title: "复习"})
	if _, eff := Transition(s, Event{Kind: EventStop, At: at(0)}); len(eff) != 0 {
		t.Errorf("未开始时 stop 不应有副作用: %+v", eff)
	}

	s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})
	s, _ = Transition(s, Event{Kind: EventPause, At: at(5000)})
	s, eff := Transition(s, Event{Kind: EventStop, At: at(9000)})
	emit := findEffect(eff, EffectEmitSession)
	if emit == nil {
		t.Fatal("暂停后 stop 应生成记录")
	}
	if emit.Record.Completed || emit.Record.Title != "复习" {
		t.Errorf("stop 记录应为未完成且保留标题: %+v", emit.Record)
	}
	if !emit.Record.End.Equal(at(9000)) {
		t.Errorf("暂停中 stop 的结束时间应为 stop 时刻, 实际 %s", emit.Record.End)
	}
	if findEffect(eff, EffectCompleteTask) != nil {
		t.Error("stop 不应完成任务")
	}
	if findEffect(eff, EffectStopTicking) != nil {
		t.Error("暂停状态下刷新已停止，不应重复停止")
	}
	if s.State != StateIdle || s.BoundTask != nil {
		t.Errorf("stop 后应回到 idle 并解除绑定: %+v", s)
	}
}

func TestTransition_FinishFromPausedEndsAtFinish(t *testing.T) {
	cases := []struct {
		name string
		mode Mode
		want time.Time
	}{
		{"stopwatch", ModeStopwatch, at(60_000)},
		{"countdown", ModeCountdown, at(60_000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession()
			s, _ = Transition(s, Event{Kind: EventSetMode, Mode: tc.mode})
			s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})
			s, _ = Transition(s, Event{Kind: EventPause, At: at(10_000)})
			_, eff := Transition(s, Event{Kind: EventFinish, At: at(60_000)})
			emit := findEffect(eff, EffectEmitSession)
			if emit == nil {
				t.Fatal("暂停后 finish 应生成记录")
			}
			if !emit.Record.End.Equal(tc.want) {
				t.Errorf("结束时间应为 finish 时刻 %s, 实际 %s", tc.want, emit.Record.End)
			}
		})
	}

	// 暂停期间已超过倒计时目标时仍截断
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventSetCountdown, Minutes: 1})
	s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})
	s, _ = Transition(s, Event{Kind: EventPause, At: at(10_000)})
	_, eff := Transition(s, Event{Kind: EventFinish, At: at(120_000)})
	if emit := findEffect(eff, EffectEmitSession); emit == nil || !emit.Record.End.Equal(at(60_000)) {
		t.Errorf("倒计时结束时间应截断在 start+目标: %+v", emit)
	}
}

func TestTransition_ResetKeepsBindingAndEmitsNothing(t *testing.T) {
	s := NewSession()
	s, _ = Transition(s, Event{Kind: EventBind, Task: intPtr(1), Title: "写报告"})
	s, _ = Transition(s, Event{Kind: EventStart, At: at(0)})
	s, eff := Transition(s, Event{Kind: EventReset, At: at(3000)})
	if findEffect(eff, EffectEmitSession) != nil || findEffect(eff, EffectCompleteTask) != nil {
		t.Error("reset 不应生成记录或完成任务")
	}
	if findEffect(eff, EffectStopTicking) == nil {
		t.Error("running 下 reset 应停止刷新")
	}
	if s.State != StateIdle || s.Started() || s.Elapsed(at(9000)) != 0 {
		t.Errorf("reset 后计时应清零: %+v", s)
	}
	if s.BoundTask == nil || *s.BoundTask != 1 {
		t.Error("reset 应保留任务绑定")
	}
}

func TestClampMinutes(t *testing.T) {
	cases := map[int]int{-5: 1, 0: 1, 1: 1, 25: 25, 600: 600, 1000: 600}
	for in, want := range cases {
		if got := ClampMinutes(in); got != want {
			t.Errorf("ClampMinutes(%d) 期望 %d, 实际 %d", in, want, got)
		}
	}
}
