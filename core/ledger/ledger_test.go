package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/storage"
)

type noteEvent struct{ note string }

func (noteEvent) EventType() string { return "test.note" }

func (e noteEvent) Event() *types.Event {
	return &types.Event{Type: "test.note", Attributes: map[string]string{"note": e.note}}
}

type capturingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

type recordingObserver struct {
	calls []error
}

func (r *recordingObserver) Observe(_ string, _ time.Duration, err error) {
	r.calls = append(r.calls, err)
}

var errBoom = errors.New("boom")

func newTestLedger(t *testing.T, db storage.Database) *Ledger {
	t.Helper()
	l, err := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, l.Register(types.TxTypeMintTo, func(c *Context, payload []byte) error {
		if err := l.State().KVPut([]byte("note"), payload); err != nil {
			return err
		}
		c.Emit(noteEvent{note: string(payload)})
		return nil
	}))
	require.NoError(t, l.Register(types.TxTypeTransfer, func(c *Context, payload []byte) error {
		if err := l.State().KVPut([]byte("note"), payload); err != nil {
			return err
		}
		c.Emit(noteEvent{note: "never"})
		return errBoom
	}))
	require.NoError(t, l.Register(types.TxTypeApprove, func(c *Context, payload []byte) error {
		if len(c.Signers()) != 2 {
			return errors.New("expected two signers")
		}
		return nil
	}))
	return l
}

func signedTx(t *testing.T, txType types.TxType, nonce uint64, payload []byte, keys ...*crypto.PrivateKey) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{Type: txType, Nonce: nonce, Payload: payload}
	for _, key := range keys {
		require.NoError(t, tx.Sign(key))
	}
	return tx
}

func readNote(t *testing.T, l *Ledger) (string, bool) {
	t.Helper()
	var note []byte
	var ok bool
	require.NoError(t, l.View(func(st *state.Manager) error {
		var err error
		ok, err = st.KVGet([]byte("note"), &note)
		return err
	}))
	return string(note), ok
}

func TestSubmitCommitsAndFansOut(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB())
	sink := &capturingEmitter{}
	observer := &recordingObserver{}
	l.Subscribe(sink)
	l.SetObserver(observer)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	receipt, err := l.Submit(context.Background(), signedTx(t, types.TxTypeMintTo, 1, []byte("hello"), key))
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.Sequence)
	require.Equal(t, []string{key.PubKey().Address().String()}, receipt.Signers)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, "hello", receipt.Events[0].Attributes["note"])
	require.Len(t, sink.events, 1)
	require.Equal(t, []error{nil}, observer.calls)

	note, ok := readNote(t, l)
	require.True(t, ok)
	require.Equal(t, "hello", note)
}

func TestSubmitFailureDiscardsWritesAndEvents(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB())
	sink := &capturingEmitter{}
	l.Subscribe(sink)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = l.Submit(context.Background(), signedTx(t, types.TxTypeMintTo, 1, []byte("kept"), key))
	require.NoError(t, err)

	_, err = l.Submit(context.Background(), signedTx(t, types.TxTypeTransfer, 2, []byte("dropped"), key))
	require.ErrorIs(t, err, errBoom)

	note, ok := readNote(t, l)
	require.True(t, ok)
	require.Equal(t, "kept", note)
	require.Len(t, sink.events, 1)
	require.Equal(t, uint64(1), l.Sequence())
}

func TestSubmitRejectsReplay(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB())
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	tx := signedTx(t, types.TxTypeMintTo, 1, []byte("once"), key)

	_, err = l.Submit(context.Background(), tx)
	require.NoError(t, err)
	_, err = l.Submit(context.Background(), tx)
	require.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestSubmitRejectsUnknownAndUnsigned(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB())
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = l.Submit(context.Background(), signedTx(t, types.TxTypeList, 1, nil, key))
	require.ErrorIs(t, err, ErrUnknownTransaction)

	_, err = l.Submit(context.Background(), &types.Transaction{Type: types.TxTypeMintTo, Payload: []byte("x")})
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = l.Submit(context.Background(), nil)
	require.ErrorIs(t, err, ErrNilTransaction)
}

func TestSubmitExposesEveryCoSigner(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB())
	first, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	second, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = l.Submit(context.Background(), signedTx(t, types.TxTypeApprove, 1, nil, first))
	require.Error(t, err)
	_, err = l.Submit(context.Background(), signedTx(t, types.TxTypeApprove, 2, nil, first, second))
	require.NoError(t, err)
}

func TestSequenceSurvivesReopen(t *testing.T) {
	db := storage.NewMemDB()
	l := newTestLedger(t, db)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	for nonce := uint64(1); nonce <= 3; nonce++ {
		_, err := l.Submit(context.Background(), signedTx(t, types.TxTypeMintTo, nonce, []byte("n"), key))
		require.NoError(t, err)
	}

	reopened, err := New(db, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(3), reopened.Sequence())
}

func TestApplyGenesisOnce(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB())
	sink := &capturingEmitter{}
	l.Subscribe(sink)

	require.NoError(t, l.ApplyGenesis(context.Background(), func(c *Context) error {
		c.Emit(noteEvent{note: "genesis"})
		return l.State().KVPut([]byte("note"), []byte("genesis"))
	}))
	require.Len(t, sink.events, 1)

	err := l.ApplyGenesis(context.Background(), func(c *Context) error { return nil })
	require.ErrorIs(t, err, ErrGenesisApplied)

	note, ok := readNote(t, l)
	require.True(t, ok)
	require.Equal(t, "genesis", note)
}

func TestContextDeduplicatesSigners(t *testing.T) {
	a := [20]byte{1}
	b := [20]byte{2}
	c := NewContext(nil, [32]byte{}, a, b, a)
	require.Equal(t, [][20]byte{a, b}, c.Signers())
	require.True(t, c.IsSigner(b))
	require.False(t, c.IsSigner([20]byte{3}))
	require.NotNil(t, c.Context())
}
