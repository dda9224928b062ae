package transfer

import (
	"github.com/transmute/transmute/pkg/buildcontext"
)

// Request kinds understood by the orchestrator-side message loop.
const (
	CallGet  = "get"
	CallKeys = "keys"
)

// ContextCall is a worker-to-orchestrator callback request. Requests are
// correlated by ID and answered over the Reply channel; the worker-side
// caller blocks until the reply arrives. Request kinds must stay
// idempotent-safe so an integrator can layer retries above this protocol.
type ContextCall struct {
	ID    string
	Kind  string
	Key   string
	Reply chan ContextReply
}

// ContextReply answers a single ContextCall.
type ContextReply struct {
	ID    string
	Value any
	OK    bool
	Keys  []string
}

// RemoteContext is the worker-side view of the shared build context. Each
// read is issued as a correlated request over the calls channel and blocks
// until the orchestrating side responds: a minimal synchronous RPC layered
// on the asynchronous transport. No timeout is applied at this layer.
type RemoteContext struct {
	calls chan<- ContextCall
}

// NewRemoteContext binds a remote context to a callback channel
func NewRemoteContext(calls chan<- ContextCall) *RemoteContext {
	return &RemoteContext{calls: calls}
}

// Get issues a blocking lookup against the orchestrator-side store
func (r *RemoteContext) Get(key string) (any, bool) {
	reply := r.call(ContextCall{Kind: CallGet, Key: key})
	return reply.Value, reply.OK
}

// Keys issues a blocking key enumeration against the orchestrator-side store
func (r *RemoteContext) Keys() []string {
	reply := r.call(ContextCall{Kind: CallKeys})
	return reply.Keys
}

func (r *RemoteContext) call(c ContextCall) ContextReply {
	c.ID = buildcontext.GenerateRequestID()
	c.Reply = make(chan ContextReply, 1)
	r.calls <- c
	return <-c.Reply
}

// ServeCalls answers callback requests against the given store until the
// calls channel is closed. The orchestrating side runs this loop while a
// batch is in flight so worker-side reads never block indefinitely.
func ServeCalls(calls <-chan ContextCall, bc buildcontext.Context) {
	for c := range calls {
		reply := ContextReply{ID: c.ID}
		switch c.Kind {
		case CallGet:
			reply.Value, reply.OK = bc.Get(c.Key)
		case CallKeys:
			reply.Keys = bc.Keys()
			reply.OK = true
		}
		c.Reply <- reply
	}
}

// compile-time interface check
var _ buildcontext.Context = (*RemoteContext)(nil)
