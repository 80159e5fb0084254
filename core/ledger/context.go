package ledger

import (
	"context"

	"nftmarket/core/events"
)

// Context is handed to transaction handlers. It exposes the co-signers of the
// transaction and buffers emitted events until the transaction commits.
type Context struct {
	ctx     context.Context
	hash    [32]byte
	signers [][20]byte
	index   map[[20]byte]struct{}
	events  []events.Event
}

// NewContext builds a handler context for the supplied co-signers. The ledger
// constructs one per transaction; tests and genesis loaders use it directly.
func NewContext(parent context.Context, hash [32]byte, signers ...[20]byte) *Context {
	if parent == nil {
		parent = context.Background()
	}
	c := &Context{ctx: parent, hash: hash, index: make(map[[20]byte]struct{}, len(signers))}
	for _, signer := range signers {
		if _, ok := c.index[signer]; ok {
			continue
		}
		c.index[signer] = struct{}{}
		c.signers = append(c.signers, signer)
	}
	return c
}

// Context returns the request context the transaction was submitted with.
func (c *Context) Context() context.Context { return c.ctx }

// TxHash returns the hash of the transaction being executed.
func (c *Context) TxHash() [32]byte { return c.hash }

// IsSigner reports whether addr co-signed the transaction.
func (c *Context) IsSigner(addr [20]byte) bool {
	_, ok := c.index[addr]
	return ok
}

// Signers returns the co-signers in signature order.
func (c *Context) Signers() [][20]byte {
	out := make([][20]byte, len(c.signers))
	copy(out, c.signers)
	return out
}

// Emit buffers evt. Buffered events reach subscribers only if the transaction
// commits.
func (c *Context) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	c.events = append(c.events, evt)
}

// Events returns the events buffered so far.
func (c *Context) Events() []events.Event {
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Invocation is the view of a running transaction that native engines need:
// who co-signed it and where to send events.
type Invocation interface {
	IsSigner(addr [20]byte) bool
	events.Emitter
}

var _ Invocation = (*Context)(nil)
