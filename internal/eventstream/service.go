// Package eventstream implements the vault core's WebSocket event-stream
// client (§4.D): a single-socket connection state machine, a logical
// subscription table refcounted by handle, a server-side listener registry,
// reconnect-with-backoff, and a 30s ping / forced-close keepalive — grounded
// on the teacher's main.go Client/Broker connection handling, generalized
// from a server accepting connections into a client maintaining one.
package eventstream

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koofr/vault-sub003/internal/auth"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
	"github.com/koofr/vault-sub003/internal/wstransport"
)

const (
	pingInterval   = 30 * time.Second
	backoffInitial = 500 * time.Millisecond
	backoffMax     = 30 * time.Second
	registerWindow = time.Second
	registerBurst  = 32
)

// EventHandler is invoked for each event delivered to a subject's
// subscribers. Per §4.D it executes on the event-stream task and MUST be
// short, deferring heavy work into the Store.
type EventHandler func(subject store.Subject, raw []byte)

// Subscription is a caller-held handle to a logical (mount, path)
// subscription. Dropping it (calling Close) decrements the refcount and
// never blocks on the network — the resulting Deregister send is
// fire-and-forget.
type Subscription struct {
	svc     *Service
	subject store.Subject
	closed  int32
}

// Close releases this subscription's hold on the underlying logical
// subscription.
func (s *Subscription) Close() {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return
	}
	s.svc.release(s.subject)
}

type logicalSub struct {
	refcount   int
	listenerID vaulttypes.ListenerId
	requestID  vaulttypes.RequestId
	registered bool
	handlers   []EventHandler
}

// Service owns the single WebSocket connection used to fan server-sent
// events into the Store and into subscriber callbacks.
type Service struct {
	st      *store.Store
	rt      runtime.Runtime
	authP   auth.AuthProvider
	ws      wstransport.WebSocketClient
	url     string
	limiter *registerLimiter

	mu      sync.Mutex
	subs    map[store.Subject]*logicalSub
	ids     vaulttypes.NextId
	backoff time.Duration

	shutdown int32
}

// NewService constructs an event-stream service dialing url, authenticating
// via authP, and driving state transitions into st.
func NewService(st *store.Store, rt runtime.Runtime, authP auth.AuthProvider, ws wstransport.WebSocketClient, url string) *Service {
	return &Service{
		st:      st,
		rt:      rt,
		authP:   authP,
		ws:      ws,
		url:     url,
		limiter: newRegisterLimiter(registerWindow, registerBurst, func() time.Time { return time.UnixMilli(rt.Now()) }),
		subs:    make(map[store.Subject]*logicalSub),
		backoff: backoffInitial,
	}
}

// Start begins the connect/reconnect loop on a runtime-spawned task. Call
// Stop to end it.
func (svc *Service) Start(ctx context.Context) {
	svc.rt.Spawn(func() {
		svc.run(ctx)
	})
}

// Stop ends the connect/reconnect loop and closes the socket.
func (svc *Service) Stop() {
	atomic.StoreInt32(&svc.shutdown, 1)
	_ = svc.ws.Close()
}

func (svc *Service) stopped() bool {
	return atomic.LoadInt32(&svc.shutdown) != 0
}

// Listen registers caller interest in (mountId, path), sending Register the
// first time refcount rises from 0, per §4.D.
func (svc *Service) Listen(mountId vaulttypes.MountId, path vaulttypes.RemotePath, handler EventHandler) *Subscription {
	subject := store.Subject{MountId: mountId, Path: path}

	svc.mu.Lock()
	sub, ok := svc.subs[subject]
	if !ok {
		sub = &logicalSub{}
		svc.subs[subject] = sub
	}
	sub.refcount++
	sub.handlers = append(sub.handlers, handler)
	needsRegister := sub.refcount == 1
	svc.mu.Unlock()

	if needsRegister {
		svc.sendRegister(subject)
	}

	return &Subscription{svc: svc, subject: subject}
}

func (svc *Service) release(subject store.Subject) {
	svc.mu.Lock()
	sub, ok := svc.subs[subject]
	if !ok {
		svc.mu.Unlock()
		return
	}
	sub.refcount--
	if sub.refcount > 0 {
		svc.mu.Unlock()
		return
	}
	delete(svc.subs, subject)
	listenerID := sub.listenerID
	registered := sub.registered
	svc.mu.Unlock()

	if registered {
		svc.sendDeregister(listenerID, subject)
	}
}

func (svc *Service) sendRegister(subject store.Subject) {
	if !svc.limiter.Allow(subject) {
		return
	}
	requestID := vaulttypes.RequestId(strconv.FormatUint(svc.ids.Next(), 10))

	svc.mu.Lock()
	sub, ok := svc.subs[subject]
	if !ok {
		svc.mu.Unlock()
		return
	}
	sub.requestID = requestID
	sub.registered = false
	svc.mu.Unlock()

	_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
		s.EventStream.Pending[requestID] = subject
		notify(store.EventEventStream)
	})

	payload, err := encodeRegister(string(requestID), string(subject.MountId), string(subject.Path))
	if err != nil {
		return
	}
	_ = svc.ws.Send(string(payload))
}

func (svc *Service) sendDeregister(listenerID vaulttypes.ListenerId, subject store.Subject) {
	_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
		delete(s.EventStream.Listeners, listenerID)
		notify(store.EventEventStream)
	})
	payload, err := encodeDeregister(string(listenerID))
	if err != nil {
		return
	}
	_ = svc.ws.Send(string(payload))
}

// reregisterAll re-sends Register for every logical subscription with fresh
// request ids, invalidating any listener ids from the prior connection, per
// §4.D's reconnect contract.
func (svc *Service) reregisterAll() {
	svc.mu.Lock()
	subjects := make([]store.Subject, 0, len(svc.subs))
	for subject, sub := range svc.subs {
		sub.registered = false
		sub.listenerID = ""
		subjects = append(subjects, subject)
	}
	svc.mu.Unlock()

	_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
		for listenerID := range s.EventStream.Listeners {
			delete(s.EventStream.Listeners, listenerID)
		}
		notify(store.EventEventStream)
	})

	for _, subject := range subjects {
		svc.sendRegister(subject)
	}
}

func (svc *Service) run(ctx context.Context) {
	for !svc.stopped() {
		if ctx.Err() != nil {
			return
		}
		svc.connectOnce(ctx)
		if svc.stopped() || ctx.Err() != nil {
			return
		}
		wait := svc.backoff
		svc.backoff *= 2
		if svc.backoff > backoffMax {
			svc.backoff = backoffMax
		}
		_ = svc.rt.Sleep(ctx, wait)
	}
}

func (svc *Service) connectOnce(ctx context.Context) {
	_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
		s.EventStream.Connection = store.ConnConnecting
		notify(store.EventEventStream)
	})

	lastMessage := make(chan struct{}, 1)
	closed := make(chan struct{})

	onMessage := func(text string) {
		svc.handleInbound([]byte(text))
		select {
		case lastMessage <- struct{}{}:
		default:
		}
	}
	onClose := func(error) {
		close(closed)
	}

	if err := svc.ws.Open(ctx, svc.url, onMessage, onClose); err != nil {
		_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
			s.EventStream.Connection = store.ConnDisconnected
			notify(store.EventEventStream)
		})
		return
	}

	header, err := svc.authP.GetAuthorization(ctx, false)
	if err != nil {
		_ = svc.ws.Close()
		<-closed
		_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
			s.EventStream.Connection = store.ConnDisconnected
			notify(store.EventEventStream)
		})
		return
	}
	payload, err := encodeAuth(header)
	if err != nil {
		_ = svc.ws.Close()
		<-closed
		return
	}
	if err := svc.ws.Send(string(payload)); err != nil {
		_ = svc.ws.Close()
		<-closed
		return
	}

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
	timeout := time.NewTimer(2 * pingInterval)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = svc.ws.Close()
			<-closed
			return
		case <-closed:
			_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
				s.EventStream.Connection = store.ConnDisconnected
				notify(store.EventEventStream)
			})
			return
		case <-lastMessage:
			if !timeout.Stop() {
				select {
				case <-timeout.C:
				default:
				}
			}
			timeout.Reset(2 * pingInterval)
		case <-pingTicker.C:
			ping, err := encodePing()
			if err == nil {
				_ = svc.ws.Send(string(ping))
			}
		case <-timeout.C:
			_ = svc.ws.Close()
			<-closed
			_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
				s.EventStream.Connection = store.ConnDisconnected
				notify(store.EventEventStream)
			})
			return
		}
	}
}

func (svc *Service) handleInbound(raw []byte) {
	msg, err := decodeInbound(raw)
	if err != nil {
		return
	}

	switch msg.Action {
	case actionAuthenticated:
		svc.backoff = backoffInitial
		_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
			s.EventStream.Connection = store.ConnAuthenticated
			notify(store.EventEventStream)
		})
		svc.reregisterAll()

	case actionRegistered:
		requestID := vaulttypes.RequestId(msg.RequestId)
		listenerID := vaulttypes.ListenerId(msg.ListenerId)

		svc.mu.Lock()
		var subject store.Subject
		var found bool
		for s, sub := range svc.subs {
			if sub.requestID == requestID {
				sub.listenerID = listenerID
				sub.registered = true
				subject = s
				found = true
				break
			}
		}
		svc.mu.Unlock()

		if !found {
			// The subscription was released before the server confirmed
			// it: forget the pending request and deregister the listener
			// the server just created.
			_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
				delete(s.EventStream.Pending, requestID)
				notify(store.EventEventStream)
			})
			if listenerID != "" {
				if payload, err := encodeDeregister(string(listenerID)); err == nil {
					_ = svc.ws.Send(string(payload))
				}
			}
			return
		}
		_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
			delete(s.EventStream.Pending, requestID)
			s.EventStream.Listeners[listenerID] = store.EventStreamListener{Subject: subject, RequestId: requestID}
			notify(store.EventEventStream)
		})

	case actionDeregistered:
		listenerID := vaulttypes.ListenerId(msg.ListenerId)
		_ = svc.st.Mutate(func(s *store.State, notify store.NotifyFunc) {
			delete(s.EventStream.Listeners, listenerID)
			notify(store.EventEventStream)
		})

	case actionEvent:
		listenerID := vaulttypes.ListenerId(msg.ListenerId)

		svc.mu.Lock()
		var subject store.Subject
		var handlers []EventHandler
		var found bool
		for s, sub := range svc.subs {
			if sub.listenerID == listenerID {
				subject = s
				handlers = append(handlers, sub.handlers...)
				found = true
				break
			}
		}
		svc.mu.Unlock()

		if !found {
			// Racy deregister: the server doesn't yet know we stopped
			// caring. Drop silently per §4.D.
			return
		}
		for _, handler := range handlers {
			handler(subject, msg.Event)
		}

	default:
		// Unknown actions are tolerated — the wire protocol may grow new
		// message kinds the client does not yet understand.
	}
}
