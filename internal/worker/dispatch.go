package worker

import (
	"errors"
	"fmt"

	"github.com/pitwall/pitwall/internal/dispatcher"
	"github.com/pitwall/pitwall/internal/influx"
	"github.com/pitwall/pitwall/internal/parser"
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/internal/util"
	"github.com/pitwall/pitwall/pkg/core"
)

// Command names.
const (
	CmdSelectDriver = ":SELECT:DRIVER:"
	CmdSetTrack     = ":TRACK:SET:"
	CmdPlay         = ":SIM:PLAY:"
	CmdPause        = ":SIM:PAUSE:"
	CmdToggle       = ":SIM:TOGGLE:"
	CmdReset        = ":SIM:RESET:"
	CmdPitAdd       = ":PIT:ADD:"
	CmdPitInsert    = ":PIT:INSERT:"
	CmdPitUpdate    = ":PIT:UPDATE:"
	CmdPitRemove    = ":PIT:REMOVE:"

	CmdRunStart    = ":RUN:START:"
	CmdRunEnd      = ":RUN:END:"
	CmdFrameRecord = ":FRAME:RECORD:"
	CmdFrameMetric = ":FRAME:METRIC:"
	CmdMetric      = ":METRIC:"
)

// ClientCommands are the commands clients may send. The rest are internal.
var ClientCommands = []string{
	CmdSelectDriver, CmdSetTrack,
	CmdPlay, CmdPause, CmdToggle, CmdReset,
	CmdPitAdd, CmdPitInsert, CmdPitUpdate, CmdPitRemove,
	CmdMetric,
}

// Results returned by command handlers.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultPlaying  = "playing"
	ResultPaused   = "paused"
	ResultNoData   = "no_data"
)

// ErrBadPayload is returned when an internal event carries the wrong payload type.
var ErrBadPayload = errors.New("unexpected event payload")

// RunStart is the payload of CmdRunStart.
type RunStart struct {
	Recording core.Recording
	Data      core.Comparison
}

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(s *session.Session) {
	d := m.deps.Dispatcher

	// Session commands - sync, the caller wants the result
	d.Register(CmdSelectDriver, m.sessionHandler(s, handleSelectDriver), dispatcher.Logged())
	d.Register(CmdSetTrack, m.sessionHandler(s, handleSetTrack), dispatcher.Logged())
	d.Register(CmdPlay, m.sessionHandler(s, handlePlay), dispatcher.Logged())
	d.Register(CmdPause, m.sessionHandler(s, handlePause), dispatcher.Logged())
	d.Register(CmdToggle, m.sessionHandler(s, handleToggle), dispatcher.Logged())
	d.Register(CmdReset, m.sessionHandler(s, handleReset), dispatcher.Logged())
	d.Register(CmdPitAdd, m.sessionHandler(s, handlePitAdd), dispatcher.Logged())
	d.Register(CmdPitInsert, m.sessionHandler(s, handlePitInsert), dispatcher.Logged())
	d.Register(CmdPitUpdate, m.sessionHandler(s, handlePitUpdate), dispatcher.Logged())
	d.Register(CmdPitRemove, m.sessionHandler(s, handlePitRemove), dispatcher.Logged())

	// Recorder - sync, ordering is kept by the recorder queue
	d.Register(CmdRunStart, m.handleRunStart, dispatcher.Logged())
	d.Register(CmdRunEnd, m.handleRunEnd, dispatcher.Logged())
	d.Register(CmdFrameRecord, m.handleFrameRecord)

	if m.deps.Influx != nil {
		d.Register(CmdFrameMetric, m.handleFrameMetric, dispatcher.Buffered(1000))
		d.Register(CmdMetric, m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
	}
}

type sessionFunc func(*session.Session, []string) (any, error)

func (m *Manager) sessionHandler(s *session.Session, fn sessionFunc) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		return fn(s, e.Args)
	}
}

func handleSelectDriver(s *session.Session, args []string) (any, error) {
	sel, err := parser.ParseDriverSelection(args)
	if err != nil {
		return nil, fmt.Errorf("failed to select driver: %w", err)
	}
	if err := s.SelectDriver(sel.Slot, sel.DriverID); err != nil {
		return nil, fmt.Errorf("failed to select driver: %w", err)
	}
	return ResultOK, nil
}

func handleSetTrack(s *session.Session, args []string) (any, error) {
	name, err := parser.ParseTrack(args)
	if err != nil {
		return nil, fmt.Errorf("failed to set track: %w", err)
	}
	if err := s.SelectTrack(name); err != nil {
		return nil, fmt.Errorf("failed to set track: %w", err)
	}
	return ResultOK, nil
}

func handlePlay(s *session.Session, _ []string) (any, error) {
	if !s.Play() {
		return ResultNoData, nil
	}
	return ResultPlaying, nil
}

func handlePause(s *session.Session, _ []string) (any, error) {
	s.Pause()
	return ResultPaused, nil
}

func handleToggle(s *session.Session, _ []string) (any, error) {
	if !s.TogglePlay() {
		return ResultNoData, nil
	}
	return playState(s), nil
}

func handleReset(s *session.Session, _ []string) (any, error) {
	s.Reset()
	return ResultOK, nil
}

func handlePitAdd(s *session.Session, args []string) (any, error) {
	slot, err := parser.ParseSlot(args)
	if err != nil {
		return nil, fmt.Errorf("failed to add stop: %w", err)
	}
	return editResult(s.AddStop(slot))
}

func handlePitInsert(s *session.Session, args []string) (any, error) {
	in, err := parser.ParseStopInsert(args)
	if err != nil {
		return nil, fmt.Errorf("failed to insert stop: %w", err)
	}
	return editResult(s.InsertStop(in.Slot, in.Lap, in.Tire))
}

func handlePitUpdate(s *session.Session, args []string) (any, error) {
	up, err := parser.ParseStopUpdate(args)
	if err != nil {
		return nil, fmt.Errorf("failed to update stop: %w", err)
	}
	return editResult(s.UpdateStop(up.Slot, up.Index, up.Lap, up.Tire))
}

func handlePitRemove(s *session.Session, args []string) (any, error) {
	ref, err := parser.ParseStopRef(args)
	if err != nil {
		return nil, fmt.Errorf("failed to remove stop: %w", err)
	}
	return editResult(s.RemoveStop(ref.Slot, ref.Index))
}

func editResult(applied bool, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if !applied {
		return ResultRejected, nil
	}
	return ResultOK, nil
}

func playState(s *session.Session) string {
	if s.Snapshot().Phase == sim.Running {
		return ResultPlaying
	}
	return ResultPaused
}

func (m *Manager) handleRunStart(e dispatcher.Event) (any, error) {
	start, ok := e.Payload.(RunStart)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrBadPayload, e.Payload)
	}
	m.records.Send(recordOp{kind: opStart, rec: start.Recording, data: start.Data})
	return nil, nil
}

func (m *Manager) handleRunEnd(e dispatcher.Event) (any, error) {
	rec, ok := e.Payload.(core.Recording)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrBadPayload, e.Payload)
	}
	m.records.Send(recordOp{kind: opEnd, rec: rec})
	return nil, nil
}

func (m *Manager) handleFrameRecord(e dispatcher.Event) (any, error) {
	f, ok := e.Payload.(core.Frame)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrBadPayload, e.Payload)
	}
	if !m.records.TrySend(recordOp{kind: opFrame, frame: f}) {
		m.dropped.Add(1)
		return nil, fmt.Errorf("%w: recorder", dispatcher.ErrQueueFull)
	}
	return nil, nil
}

func (m *Manager) handleFrameMetric(e dispatcher.Event) (any, error) {
	f, ok := e.Payload.(core.Frame)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrBadPayload, e.Payload)
	}
	if err := m.deps.Influx.WriteFrame(f); err != nil {
		return nil, fmt.Errorf("failed to write frame metric: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	bucket, point, err := influx.ProcessMetricData(e.Args, util.CleanArg)
	if err != nil {
		return nil, fmt.Errorf("failed to process metric: %w", err)
	}
	if err := m.deps.Influx.WritePoint(bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}
