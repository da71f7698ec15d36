package wizard

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/util"
)

type (
	// Sequencer owns the wizard state and applies the three mutation
	// intents: SetField, SetStep and GoTo. Every mutation is atomic and is
	// followed by a snapshot published to subscribers
	Sequencer struct {
		state    *api.WizardState
		prod     topic.Producer[*api.WizardState]
		subs     util.Set[*Subscription]
		stop     chan uint64
		closing  chan struct{}
		pumped   chan struct{}
		sent     atomic.Uint64
		watchers atomic.Int32
		mu       sync.RWMutex
		pubMu    sync.RWMutex
		subMu    sync.Mutex
		closed   bool
		drained  bool
		strict   bool
	}

	// Subscription receives a snapshot after every mutation. Snapshots can
	// arrive out of order; compare Version to discard stale ones
	Subscription struct {
		ch      chan *api.WizardState
		done    chan struct{}
		release func(*Subscription)
		once    sync.Once
	}
)

const subscriptionBuffer = 16

// NewSequencer creates a Sequencer over a copy of the initial state. With
// strict set, GoTo refuses to enter a step whose earlier outputs are
// missing
func NewSequencer(init *api.WizardState, strict bool) *Sequencer {
	if init == nil {
		init = api.NewWizardState()
	}
	state := init.Clone()
	for _, id := range api.StepOrder {
		if _, ok := state.Steps[id]; !ok {
			state.Steps[id] = api.NewStepState(id)
		}
	}
	for id := range state.Steps {
		if id.Index() < 0 {
			delete(state.Steps, id)
		}
	}

	t := caravan.NewTopic[*api.WizardState]()
	res := &Sequencer{
		state:   state,
		prod:    t.NewProducer(),
		subs:    util.Set[*Subscription]{},
		stop:    make(chan uint64, 1),
		closing: make(chan struct{}),
		pumped:  make(chan struct{}),
		strict:  strict,
	}
	go res.pump(t.NewConsumer())
	return res
}

// Snapshot returns a deep copy of the current state
func (s *Sequencer) Snapshot() *api.WizardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// SetField replaces one top-level scalar of the state
func (s *Sequencer) SetField(f api.Field, value any) error {
	if !f.IsKnown() {
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return s.update(func(st *api.WizardState) error {
		return assignField(st, f, value)
	})
}

// SetStep shallow-merges a patch into one step. Unknown step identifiers
// are rejected so the step map never grows
func (s *Sequencer) SetStep(id api.StepID, p api.StepPatch) error {
	if id.Index() < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	return s.update(func(st *api.WizardState) error {
		step, ok := st.Steps[id]
		if !ok {
			step = api.NewStepState(id)
			st.Steps[id] = step
		}
		step.Apply(p)
		return nil
	})
}

// GoTo makes a step current. Navigation is unrestricted unless the
// Sequencer is strict
func (s *Sequencer) GoTo(id api.StepID) error {
	return s.goTo(id, s.strict)
}

// Subscribe registers a consumer of state snapshots. The caller must Close
// the Subscription. Its channel is closed when the Sequencer closes
func (s *Sequencer) Subscribe() *Subscription {
	sub := &Subscription{
		ch:      make(chan *api.WizardState, subscriptionBuffer),
		done:    make(chan struct{}),
		release: s.unsubscribe,
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.drained {
		close(sub.ch)
		return sub
	}
	s.subs.Add(sub)
	s.watchers.Add(1)
	return sub
}

// Close stops publishing snapshots. It returns once every snapshot already
// published has been handed to the subscribers
func (s *Sequencer) Close() {
	s.pubMu.Lock()
	if s.closed {
		s.pubMu.Unlock()
		<-s.pumped
		return
	}
	s.closed = true
	s.prod.Close()
	s.pubMu.Unlock()

	close(s.closing)
	s.stop <- s.sent.Load()
	<-s.pumped
}

// Receive returns the channel that snapshots arrive on
func (s *Subscription) Receive() <-chan *api.WizardState {
	return s.ch
}

// Close releases the subscription. It never closes the Receive channel
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.release(s)
	})
}

func (s *Sequencer) unsubscribe(sub *Subscription) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs.Contains(sub) {
		s.subs.Remove(sub)
		s.watchers.Add(-1)
	}
}

// pump owns the only caravan consumer of the topic and fans snapshots out
// to the subscriptions. Subscriptions come and go without closing caravan
// consumers while snapshots are being put
func (s *Sequencer) pump(cons topic.Consumer[*api.WizardState]) {
	defer close(s.pumped)

	var received uint64
	target := uint64(math.MaxUint64)
	for received < target {
		select {
		case snap := <-cons.Receive():
			received++
			s.deliver(snap)
		case target = <-s.stop:
		}
	}
	cons.Close()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subs {
		close(sub.ch)
	}
	s.subs = util.Set[*Subscription]{}
	s.watchers.Store(0)
	s.drained = true
}

// deliver hands a snapshot to every subscription. Once the Sequencer is
// closing, a full subscription is skipped instead of waited on
func (s *Sequencer) deliver(snap *api.WizardState) {
	s.subMu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- snap:
			continue
		default:
		}
		select {
		case sub.ch <- snap:
		case <-sub.done:
		case <-s.closing:
		}
	}
}

func (s *Sequencer) goTo(id api.StepID, strict bool) error {
	if id.Index() < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	return s.update(func(st *api.WizardState) error {
		if strict {
			if err := CheckNavigation(st, id); err != nil {
				return err
			}
		}
		st.Current = id
		return nil
	})
}

func (s *Sequencer) update(fn func(*api.WizardState) error) error {
	s.mu.Lock()
	if err := fn(s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.Version++
	var snap *api.WizardState
	if s.watchers.Load() > 0 {
		snap = s.state.Clone()
	}
	s.mu.Unlock()

	if snap != nil {
		s.publish(snap)
	}
	return nil
}

func (s *Sequencer) publish(snap *api.WizardState) {
	s.pubMu.RLock()
	defer s.pubMu.RUnlock()
	if !s.closed && message.Send(s.prod, snap) {
		s.sent.Add(1)
	}
}

func assignField(st *api.WizardState, f api.Field, value any) error {
	switch f {
	case api.FieldFile:
		switch v := value.(type) {
		case *api.SelectedFile:
			st.File = v
		case nil:
			st.File = nil
		default:
			return fieldTypeError(f, value)
		}
	case api.FieldAction:
		a, err := toAction(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFieldType, f, err)
		}
		st.Action = a
	case api.FieldAutoRun:
		v, ok := value.(bool)
		if !ok {
			return fieldTypeError(f, value)
		}
		st.AutoRun = v
	case api.FieldAutoDelayMs:
		v, ok := toInt(value)
		if !ok {
			return fieldTypeError(f, value)
		}
		st.AutoDelayMs = v
	default:
		dst := stringField(st, f)
		v, ok := value.(string)
		if dst == nil || !ok {
			return fieldTypeError(f, value)
		}
		*dst = v
	}
	return nil
}

func stringField(st *api.WizardState, f api.Field) *string {
	switch f {
	case api.FieldEnvironment:
		return &st.Environment
	case api.FieldClientID:
		return &st.ClientID
	case api.FieldClientSecret:
		return &st.ClientSecret
	case api.FieldFileName:
		return &st.FileName
	case api.FieldToken:
		return &st.Token
	case api.FieldUploadURL:
		return &st.UploadURL
	case api.FieldFileID:
		return &st.FileID
	case api.FieldDocumentID:
		return &st.DocumentID
	case api.FieldEmails:
		return &st.Emails
	case api.FieldTitle:
		return &st.Title
	case api.FieldSignatureClass:
		return &st.SignatureClass
	default:
		return nil
	}
}

func toAction(value any) (api.Action, error) {
	switch v := value.(type) {
	case api.Action:
		return api.ParseAction(string(v))
	case string:
		return api.ParseAction(v)
	default:
		return "", fmt.Errorf("%T", value)
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func fieldTypeError(f api.Field, value any) error {
	return fmt.Errorf("%w: %s cannot be %T", ErrFieldType, f, value)
}
