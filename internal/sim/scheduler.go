package sim

import (
	"context"
	"time"

	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/platform/metrics"
	"github.com/machitown/disaster-sim/internal/protocol"
)

// baseTickInterval is the wall-clock length of one tick at speed 1.
const baseTickInterval = time.Second

// Command is one observer request routed onto the run loop. Reply, when
// non-nil, delivers the response to the requesting client only.
type Command struct {
	Msg   protocol.ClientMessage
	Reply func(protocol.ServerMessage)
}

// Loop drives one session at a fixed tick rate. All session mutation happens
// on the Run goroutine; commands and completed decisions reach it through
// channels, never through shared memory.
type Loop struct {
	session *Session
	logger  *logger.Logger
	onEnd   func(*EndSummary)

	cmds   chan Command
	speed  int
	paused bool
}

// NewLoop wires a run loop around a fresh session. onEnd fires once, on the
// loop goroutine, when the session reaches a terminal state.
func NewLoop(session *Session, log *logger.Logger, onEnd func(*EndSummary)) *Loop {
	return &Loop{
		session: session,
		logger:  log,
		onEnd:   onEnd,
		cmds:    make(chan Command, 32),
		speed:   1,
	}
}

// Submit queues a command for the loop. A saturated queue drops the command;
// observers can simply retry.
func (l *Loop) Submit(cmd Command) {
	select {
	case l.cmds <- cmd:
	default:
		l.logger.Warn("command queue full, dropping " + cmd.Msg.Type)
	}
}

func (l *Loop) interval() time.Duration {
	return baseTickInterval / time.Duration(l.speed)
}

// Run blocks until the context is cancelled. After the session ends the loop
// keeps serving read commands so late SELECT_AGENTs still get answers; ticks
// become no-ops.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l.paused || l.session.Ended() {
				continue
			}
			start := time.Now()
			ended := l.session.RunTick()
			metrics.Get().RecordTick(time.Since(start))
			if ended {
				metrics.Get().RecordSessionEnd()
				if l.onEnd != nil {
					l.onEnd(l.session.Summary())
				}
			}
		case cmd := <-l.cmds:
			l.handle(cmd, ticker)
		}
	}
}

func (l *Loop) handle(cmd Command, ticker *time.Ticker) {
	msg := cmd.Msg
	// After the run ends only agent queries are served; everything else
	// waits for a fresh INIT_SIM.
	if l.session.Ended() && msg.Type != protocol.ClientSelectAgent {
		l.logger.Warn("ignoring command after run end: " + msg.Type)
		return
	}
	switch msg.Type {
	case protocol.ClientPause:
		if !l.paused {
			l.paused = true
			l.logger.Event("PAUSE", "operator", "")
		}

	case protocol.ClientResume:
		if l.paused {
			l.paused = false
			l.logger.Event("RESUME", "operator", "")
		}

	case protocol.ClientSetSpeed:
		if !protocol.ValidSpeed(msg.Speed) {
			l.logger.Warn("ignoring unsupported speed")
			return
		}
		if msg.Speed != l.speed {
			l.speed = msg.Speed
			ticker.Reset(l.interval())
			l.logger.Event("SET_SPEED", "operator", "")
		}

	case protocol.ClientIntervention:
		if !ValidKind(msg.Kind) {
			l.logger.Warn("ignoring unknown intervention kind: " + msg.Kind)
			return
		}
		// Effects land in the next tick's diff.
		ps := l.session.ApplyIntervention(InterventionKind(msg.Kind), msg.Message)
		l.session.pending.Merge(ps)

	case protocol.ClientSelectAgent:
		resp := l.session.AgentReasoningMessage(msg.AgentID)
		if cmd.Reply != nil {
			cmd.Reply(resp)
		}

	default:
		l.logger.Warn("ignoring unknown command type: " + msg.Type)
	}
}
