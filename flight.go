package dtls

import (
	"context"
	"fmt"
	"time"
)

// flightVal names a flight identity in the server-side handshake's flight
// graph. Only the server-side flights this core drives are represented:
// Flight0 (ClientHello), Flight2 (HelloVerifyRequest), Flight3 (re-parse
// ClientHello+cookie), Flight4 (certificate exchange and key derivation),
// and Flight6 (ChangeCipherSpec/Finished handoff). Flight1/Flight5 are the
// client's own flights and are out of scope.
//
// Grounded on tgragnato-snowflake/dtls's handshaker.go flightVal usage
// (currentFlight, getFlightGenerator/getFlightParser, isLastSendFlight);
// the concrete enum and dispatch table are this node's own, since the pack
// does not carry the file defining flightVal itself.
type flightVal uint8

const (
	flight0 flightVal = iota + 1
	flight2
	flight3
	flight4
	flight6
)

func (f flightVal) String() string {
	switch f {
	case flight0:
		return "Flight0"
	case flight2:
		return "Flight2"
	case flight3:
		return "Flight3"
	case flight4:
		return "Flight4"
	case flight6:
		return "Flight6"
	default:
		return "FlightUnknown"
	}
}

// isLastRecvFlight reports whether reaching f from a Parse call ends the
// handshake's receive side, mirroring handshaker.go's same-named check.
func (f flightVal) isLastRecvFlight() bool {
	return f == flight6
}

// flightConn is the subset of connection behavior a flight's Parse/Generate
// needs, so flight*.go never depends on the concrete demo Conn (conn.go).
// Named and shaped directly after tgragnato-snowflake/dtls's flightConn
// interface.
type flightConn interface {
	notify(ctx context.Context, level AlertLevel, desc AlertDescription) error
	writePackets(ctx context.Context, pkts []*Packet) error
	handleQueuedPackets(ctx context.Context) error
}

// flightParser is a flight's inbound half:
// parse(conn, state, cache, cfg) → next_flight | (alert?, error?).
type flightParser func(ctx context.Context, conn flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) (flightVal, *Alert, error)

// flightGenerator is a flight's outbound half:
// generate(conn, state, cache, cfg) → Packet[] | (alert?, error?).
type flightGenerator func(conn flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) ([]*Packet, *Alert, error)

type flightHandlers struct {
	parse    flightParser
	generate flightGenerator
}

func (f flightVal) handlers() (flightHandlers, error) {
	h, ok := flightHandlerTable[f]
	if !ok {
		return flightHandlers{}, fmt.Errorf("dtls: %w: %s", ErrInvalidFlight, f)
	}
	return h, nil
}

var flightHandlerTable = map[flightVal]flightHandlers{
	flight0: {parse: flight0Parse, generate: flight0Generate},
	flight2: {parse: flight2Parse, generate: flight2Generate},
	flight3: {parse: flight3Parse, generate: flight3Generate},
	flight4: {parse: flight4Parse, generate: flight4Generate},
	flight6: {parse: flight6Parse, generate: flight6Generate},
}

// engineState is the per-step phase of the flight engine's run loop,
// grounded on tgragnato-snowflake/dtls's handshakeState
// (preparing/sending/waiting/finished), trimmed to this core's
// single-pass, non-retransmitting scope (retransmission is an out-of-scope
// collaborator).
type engineState uint8

const (
	engineErrored engineState = iota
	enginePreparing
	engineSending
	engineWaiting
	engineFinished
)

// Engine is the flight engine: it dispatches to the current flight's
// Parse/Generate and replaces the current flight on a successful
// transition. One Engine drives exactly one connection.
type Engine struct {
	current flightVal
	state   *State
	cache   *handshakeCache
	cfg     *HandshakeConfig
	loggers loggers
	metrics *Metrics

	startedAt time.Time
}

// NewEngine constructs an Engine seeded at Flight0, the server's entry
// point for a fresh connection.
func NewEngine(state *State, cache *handshakeCache, cfg *HandshakeConfig, loggers loggers, metrics *Metrics) *Engine {
	return &Engine{
		current: flight0,
		state:   state,
		cache:   cache,
		cfg:     cfg,
		loggers: loggers,
		metrics: metrics,
	}
}

// Step runs one prepare/send/wait cycle: generate the current flight's
// outbound packets (if any), write them, then attempt a parse. Returns
// true once the engine has reached Flight6 and its own parse confirms
// completion. A parse returning (0, nil, nil) is reported as "not done, no
// error, caller should re-invoke Step when more bytes arrive."
func (e *Engine) Step(ctx context.Context, conn flightConn) (done bool, err error) {
	if e.startedAt.IsZero() {
		e.startedAt = time.Now()
	}

	handlers, err := e.current.handlers()
	if err != nil {
		return false, err
	}

	pkts, dtlsAlert, err := handlers.generate(conn, e.state, e.cache, e.cfg)
	if dtlsAlert != nil {
		e.metrics.recordFailure(dtlsAlert.Description)
		_ = conn.notify(ctx, dtlsAlert.Level, dtlsAlert.Description)
	}
	if err != nil {
		return false, err
	}
	if len(pkts) > 0 {
		if err := conn.writePackets(ctx, pkts); err != nil {
			return false, err
		}
	}

	next, dtlsAlert, err := handlers.parse(ctx, conn, e.state, e.cache, e.cfg)
	if dtlsAlert != nil {
		e.metrics.recordFailure(dtlsAlert.Description)
		_ = conn.notify(ctx, dtlsAlert.Level, dtlsAlert.Description)
	}
	if err != nil {
		return false, err
	}
	if next == 0 {
		// (none, none): not ready, come back later.
		return false, nil
	}

	e.loggers.flight.Tracef("flight engine: %s -> %s", e.current, next)
	e.metrics.recordTransition(next)

	lastRecv := next.isLastRecvFlight() && e.current == next
	e.current = next

	if lastRecv {
		e.metrics.observeHandshakeDuration(time.Since(e.startedAt).Seconds())
		return true, nil
	}
	return false, nil
}
