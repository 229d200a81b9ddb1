package bot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zergu1ar/steambot/handler"
	"github.com/zergu1ar/steambot/policy"
	"github.com/zergu1ar/steambot/steam"
	"go.uber.org/zap"
)

type State int

const (
	Requested State = iota
	Initialized
	ItemsPending
	ReadyToggled
	Accepted
	TimedOut
	Errored
)

var stateNames = [...]string{"requested", "initialized", "items_pending", "ready_toggled", "accepted", "timed_out", "errored"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) Terminal() bool {
	return s == Accepted || s == TimedOut || s == Errored
}

var (
	ErrInvalidTransition = errors.New("invalid trade session transition")
	ErrTradeRefused      = errors.New("trade request refused")
)

// Session is one live trade with a partner. The trade itself is run by the
// Steam side; Session tracks where it is and calls the partner's handler.
// Timeouts and errors end the session and are never retried here.
type Session struct {
	ID      uuid.UUID
	Partner steam.SteamID

	mu      sync.Mutex
	state   State
	handler handler.UserHandler
	log     *zap.Logger
	metrics *Metrics
}

// NewSession asks the partner's handler whether to trade at all.
func (b *Bot) NewSession(partner steam.SteamID) (*Session, error) {
	h := b.HandlerFor(partner)
	if !h.OnTradeRequest() {
		return nil, ErrTradeRefused
	}

	id := uuid.New()
	return &Session{
		ID:      id,
		Partner: partner,
		state:   Requested,
		handler: h,
		log: b.log.With(
			zap.String("session_id", id.String()),
			zap.Uint64("partner_steamid64", uint64(partner)),
		),
		metrics: b.metrics,
	}, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(allowed []State, event string) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, event, s.state)
}

func (s *Session) set(next State) {
	s.log.Debug("session state", zap.Stringer("from", s.state), zap.Stringer("to", next))
	s.state = next
	if next.Terminal() && s.metrics != nil {
		s.metrics.Sessions.WithLabelValues(next.String()).Inc()
	}
}

var editable = []State{Initialized, ItemsPending, ReadyToggled}

func (s *Session) Init(trade handler.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition([]State{Requested}, "init"); err != nil {
		return err
	}
	s.set(Initialized)
	s.handler.OnTradeInit(trade)
	return nil
}

func (s *Session) AddItem(item policy.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(editable, "add item"); err != nil {
		return err
	}
	s.set(ItemsPending)
	s.handler.OnTradeAddItem(item)
	return nil
}

func (s *Session) RemoveItem(item policy.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(editable, "remove item"); err != nil {
		return err
	}
	s.set(ItemsPending)
	s.handler.OnTradeRemoveItem(item)
	return nil
}

func (s *Session) Ready(ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition([]State{ItemsPending, ReadyToggled}, "ready"); err != nil {
		return err
	}
	if ready {
		s.set(ReadyToggled)
	} else {
		s.set(ItemsPending)
	}
	s.handler.OnTradeReady(ready)
	return nil
}

func (s *Session) Message(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return fmt.Errorf("%w: message in %s", ErrInvalidTransition, s.state)
	}
	s.handler.OnTradeMessage(text)
	return nil
}

// Accept is the final gate. When the handler does not accept, or the accept
// result is ambiguous, the session stays where it was.
func (s *Session) Accept() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition([]State{ReadyToggled}, "accept"); err != nil {
		return err
	}

	if err := s.handler.OnTradeAccept(); err != nil {
		if errors.Is(err, handler.ErrAmbiguousAccept) {
			s.log.Warn("accept result unknown, session left as is", zap.Error(err))
		}
		return err
	}

	s.set(Accepted)
	s.handler.OnTradeSuccess()
	return nil
}

func (s *Session) Timeout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return fmt.Errorf("%w: timeout in %s", ErrInvalidTransition, s.state)
	}
	s.set(TimedOut)
	s.log.Info("trade session timed out", zap.Error(handler.ErrSessionTimeout))
	s.handler.OnTradeTimeout()
	return nil
}

func (s *Session) Fail(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return fmt.Errorf("%w: error in %s", ErrInvalidTransition, s.state)
	}
	s.set(Errored)
	s.handler.OnTradeError(reason)
	return nil
}
