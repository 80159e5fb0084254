package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/storage"
)

var (
	ErrNilTransaction     = errors.New("ledger: nil transaction")
	ErrUnknownTransaction = errors.New("ledger: unknown transaction type")
	ErrAlreadyApplied     = errors.New("ledger: transaction already applied")
	ErrInvalidSignature   = errors.New("ledger: invalid signature")
	ErrGenesisApplied     = errors.New("ledger: genesis already applied")
	ErrDuplicateHandler   = errors.New("ledger: handler already registered")
)

var (
	sequenceKey = []byte("ledger/sequence")
	genesisKey  = []byte("ledger/genesis")
	txKeyPrefix = []byte("ledger/tx/")
)

func txKey(hash []byte) []byte {
	key := make([]byte, len(txKeyPrefix)+len(hash))
	copy(key, txKeyPrefix)
	copy(key[len(txKeyPrefix):], hash)
	return key
}

// Handler executes one transaction type against the journaled state. A
// returned error aborts the transaction and discards every write it made.
type Handler func(c *Context, payload []byte) error

// Observer receives the outcome of every submitted transaction.
type Observer interface {
	Observe(txType string, elapsed time.Duration, err error)
}

// Receipt describes a committed transaction.
type Receipt struct {
	Hash     string         `json:"hash"`
	Sequence uint64         `json:"sequence"`
	Type     string         `json:"type"`
	Signers  []string       `json:"signers"`
	Events   []*types.Event `json:"events"`
}

// Ledger serializes transactions over a single state manager. Each
// transaction either commits every write in one storage batch or leaves
// state untouched.
type Ledger struct {
	mu          sync.RWMutex
	state       *state.Manager
	handlers    map[types.TxType]Handler
	subscribers []events.Emitter
	observer    Observer
	sequence    uint64
	tracer      trace.Tracer
	logger      *slog.Logger
	nowFn       func() time.Time
}

// New opens a ledger over db and restores the committed sequence number.
func New(db storage.Database, logger *slog.Logger) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("ledger: nil database")
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		state:    state.NewManager(db),
		handlers: make(map[types.TxType]Handler),
		tracer:   otel.Tracer("nftmarket/ledger"),
		logger:   logger,
		nowFn:    time.Now,
	}
	if _, err := l.state.KVGet(sequenceKey, &l.sequence); err != nil {
		return nil, fmt.Errorf("ledger: load sequence: %w", err)
	}
	return l, nil
}

// State returns the manager backing the ledger. Engines bind to it at
// startup; it must only be touched from handlers or inside View.
func (l *Ledger) State() *state.Manager { return l.state }

// Register binds a handler to a transaction type.
func (l *Ledger) Register(txType types.TxType, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.handlers[txType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, txType)
	}
	l.handlers[txType] = handler
	return nil
}

// Subscribe adds an emitter that receives committed events in commit order.
func (l *Ledger) Subscribe(emitter events.Emitter) {
	if emitter == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, emitter)
}

// SetObserver installs the transaction outcome observer.
func (l *Ledger) SetObserver(observer Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = observer
}

// Sequence returns the number of committed transactions.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sequence
}

// View runs fn with read access to committed state.
func (l *Ledger) View(fn func(st *state.Manager) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.state)
}

// Submit verifies the co-signatures on tx, dispatches it to the registered
// handler and commits the result atomically.
func (l *Ledger) Submit(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := l.tracer.Start(ctx, "ledger.submit",
		trace.WithAttributes(attribute.String("tx.type", tx.Type.String())))
	defer span.End()

	start := l.nowFn()
	receipt, err := l.submit(ctx, tx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("tx.sequence", int64(receipt.Sequence)))
		span.SetStatus(codes.Ok, "committed")
	}
	l.mu.RLock()
	observer := l.observer
	l.mu.RUnlock()
	if observer != nil {
		observer.Observe(tx.Type.String(), l.nowFn().Sub(start), err)
	}
	return receipt, err
}

func (l *Ledger) submit(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("ledger: hash transaction: %w", err)
	}
	signers, err := tx.Signers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	handler, ok := l.handlers[tx.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, tx.Type)
	}
	applied, err := l.state.KVHas(txKey(hash))
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, ErrAlreadyApplied
	}

	var txHash [32]byte
	copy(txHash[:], hash)
	c := NewContext(ctx, txHash, signers...)
	if err := handler(c, tx.Payload); err != nil {
		l.state.Discard()
		l.logger.DebugContext(ctx, "ledger: transaction rejected",
			slog.String("tx_hash", "0x"+hex.EncodeToString(hash)),
			slog.String("type", tx.Type.String()),
			slog.Any("error", err))
		return nil, err
	}

	seq, err := l.commitLocked(hash)
	if err != nil {
		return nil, err
	}

	buffered := c.Events()
	receipt := &Receipt{
		Hash:     "0x" + hex.EncodeToString(hash),
		Sequence: seq,
		Type:     tx.Type.String(),
		Signers:  make([]string, 0, len(signers)),
		Events:   make([]*types.Event, 0, len(buffered)),
	}
	for _, signer := range signers {
		receipt.Signers = append(receipt.Signers, crypto.FormatAddress(signer))
	}
	for _, evt := range buffered {
		receipt.Events = append(receipt.Events, events.Render(evt))
	}
	l.fanOutLocked(buffered)

	l.logger.InfoContext(ctx, "ledger: transaction committed",
		slog.String("tx_hash", receipt.Hash),
		slog.String("type", receipt.Type),
		slog.Uint64("sequence", seq),
		slog.Int("events", len(buffered)))
	return receipt, nil
}

func (l *Ledger) commitLocked(hash []byte) (uint64, error) {
	seq := l.sequence + 1
	if err := l.state.KVPut(sequenceKey, seq); err != nil {
		l.state.Discard()
		return 0, err
	}
	if err := l.state.KVPut(txKey(hash), seq); err != nil {
		l.state.Discard()
		return 0, err
	}
	if err := l.state.Commit(); err != nil {
		l.state.Discard()
		return 0, err
	}
	l.sequence = seq
	return seq, nil
}

func (l *Ledger) fanOutLocked(buffered []events.Event) {
	for _, evt := range buffered {
		for _, sub := range l.subscribers {
			sub.Emit(evt)
		}
	}
}

// ApplyGenesis runs fn once against an empty ledger with no co-signers and
// commits its writes atomically. Subsequent calls fail with ErrGenesisApplied.
func (l *Ledger) ApplyGenesis(ctx context.Context, fn func(c *Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	done, err := l.state.KVHas(genesisKey)
	if err != nil {
		return err
	}
	if done {
		return ErrGenesisApplied
	}
	c := NewContext(ctx, [32]byte{})
	if err := fn(c); err != nil {
		l.state.Discard()
		return fmt.Errorf("ledger: genesis: %w", err)
	}
	if err := l.state.KVPut(genesisKey, true); err != nil {
		l.state.Discard()
		return err
	}
	if err := l.state.Commit(); err != nil {
		l.state.Discard()
		return err
	}
	l.fanOutLocked(c.Events())
	l.logger.InfoContext(ctx, "ledger: genesis applied", slog.Int("events", len(c.Events())))
	return nil
}
