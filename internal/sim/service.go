package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/machitown/disaster-sim/internal/config"
	"github.com/machitown/disaster-sim/internal/decision"
	"github.com/machitown/disaster-sim/internal/infra/ai"
	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/platform/metrics"
	"github.com/machitown/disaster-sim/internal/protocol"
	"github.com/machitown/disaster-sim/internal/world"
)

// Service owns at most one live session and its run loop. INIT_SIM replaces
// the current session wholesale; every other command is forwarded onto the
// loop's channel.
type Service struct {
	cfg         config.Config
	broadcaster Broadcaster
	sink        EventSink
	provider    ai.Provider
	memory      MemoryRetriever
	logger      *logger.Logger
	onEnd       func(*EndSummary)

	mu      sync.Mutex
	session *Session
	loop    *Loop
	cancel  context.CancelFunc
}

// NewService wires the session manager. provider and memory may be nil;
// onEnd (archive, memory write-back) may be nil as well.
func NewService(cfg config.Config, b Broadcaster, sink EventSink, provider ai.Provider, memory MemoryRetriever, log *logger.Logger, onEnd func(*EndSummary)) *Service {
	return &Service{
		cfg:         cfg,
		broadcaster: b,
		sink:        sink,
		provider:    provider,
		memory:      memory,
		logger:      log,
		onEnd:       onEnd,
	}
}

// SetBroadcaster wires the fan-out surface. Must be called before the first
// INIT_SIM; the hub and the service reference each other, so one side is set
// after construction.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

// HandleCommand routes one raw observer message. reply sends to the
// originating client only and may be nil.
func (s *Service) HandleCommand(raw []byte, reply func(protocol.ServerMessage)) {
	msg, err := protocol.ParseClientMessage(raw)
	if err != nil {
		s.logger.Warn("unparseable client message: " + err.Error())
		return
	}

	if msg.Type == protocol.ClientInitSim {
		if err := s.StartSession(msg.Config); err != nil {
			s.logger.Error("INIT_SIM rejected: " + err.Error())
		}
		return
	}

	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()
	if loop == nil {
		s.logger.Warn("command before INIT_SIM ignored: " + msg.Type)
		return
	}
	loop.Submit(Command{Msg: msg, Reply: reply})
}

// StartSession tears down any running session and boots a fresh one.
func (s *Service) StartSession(sc *protocol.SimConfig) error {
	scenario, err := toScenario(sc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	b := s.broadcaster
	s.mu.Unlock()

	session, err := NewSession(scenario, s.cfg.Sim, b, s.sink, s.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	if s.provider != nil && s.provider.Available() {
		coord := decision.NewCoordinator(s.provider, decisionTuning(s.cfg.Decision), s.logger)
		session.AttachGateway(&coordinatorGateway{ctx: ctx, coord: coord}, s.cfg.Decision.BatchSize)
	}
	if s.memory != nil {
		session.AttachMemory(s.memory)
	}

	loop := NewLoop(session, s.logger, s.onEnd)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.session = session
	s.loop = loop
	s.cancel = cancel
	s.mu.Unlock()

	metrics.Get().RecordSessionStart()
	s.logger.Event("INIT_SIM", "operator", session.ID)
	if b != nil {
		b.Broadcast(session.WorldInitMessage())
	}

	go loop.Run(ctx)
	return nil
}

// OnObserverJoin sends the current full snapshot to a newly attached client.
func (s *Service) OnObserverJoin(send func(protocol.ServerMessage)) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil || send == nil {
		return
	}
	send(session.WorldInitMessage())
}

// Session returns the live session, or nil before the first INIT_SIM.
func (s *Service) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Shutdown stops the run loop.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func toScenario(sc *protocol.SimConfig) (world.GenConfig, error) {
	if sc == nil {
		return world.GenConfig{}, fmt.Errorf("INIT_SIM requires a config")
	}

	cfg := world.GenConfig{
		Size:     world.Size(sc.Size),
		Terrain:  world.Terrain(sc.Terrain),
		Disaster: world.Disaster(sc.Disaster),
		Seed:     sc.Seed,
	}
	if cfg.Terrain == "" {
		cfg.Terrain = world.TerrainInland
	}
	if cfg.Disaster == "" {
		cfg.Disaster = world.DisasterEarthquake
	}

	switch cfg.Terrain {
	case world.TerrainCoastal, world.TerrainInland, world.TerrainRiverside, world.TerrainMountain:
	default:
		return cfg, fmt.Errorf("unknown terrain %q", sc.Terrain)
	}
	switch cfg.Disaster {
	case world.DisasterTsunami, world.DisasterEarthquake, world.DisasterFlood, world.DisasterMeteor:
	default:
		return cfg, fmt.Errorf("unknown disaster %q", sc.Disaster)
	}
	return cfg, nil
}

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

func decisionTuning(d config.DecisionTuning) decision.Tuning {
	return decision.Tuning{
		MaxInflight: d.MaxInflight,
		MinInterval: msDuration(d.MinIntervalMs),
		BackoffBase: msDuration(d.BackoffBaseMs),
		BackoffMax:  msDuration(d.BackoffMaxMs),
	}
}

// coordinatorGateway adapts the decision coordinator to the session's
// gateway interface: blocking-free dispatch and drain.
type coordinatorGateway struct {
	ctx   context.Context
	coord *decision.Coordinator
}

func (g *coordinatorGateway) Dispatch(reqs []ai.DecisionRequest) []string {
	return g.coord.Dispatch(g.ctx, reqs)
}

func (g *coordinatorGateway) Drain() []AgentDecision {
	var out []AgentDecision
	for _, r := range g.coord.Drain() {
		out = append(out, AgentDecision{AgentID: r.AgentID, Decision: r.Decision})
	}
	return out
}
