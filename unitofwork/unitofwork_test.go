package unitofwork_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/store"
	"github.com/xraph/dropout/store/memory"
	"github.com/xraph/dropout/unitofwork"
)

var deadline = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newStore() *memory.Store {
	s := memory.New()
	s.AddEnrollment(&enrollment.Enrollment{ID: 1, StudentID: 10, CourseID: 5, Status: enrollment.StatusActive, DeadlineAt: deadline})
	return s
}

func flip(ctx context.Context, tx store.Tx) error {
	_, err := tx.BulkSetDropout(ctx, []int64{1}, deadline)
	return err
}

func TestDoCommitsOnSuccess(t *testing.T) {
	t.Parallel()
	s := newStore()
	out, err := unitofwork.New(s).Do(context.Background(), flip)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !out.Committed {
		t.Error("expected committed outcome")
	}
	if s.Enrollment(1).Status != enrollment.StatusDropout {
		t.Error("write was not committed")
	}
}

func TestDoRollsBackOnError(t *testing.T) {
	t.Parallel()
	s := newStore()
	boom := errors.New("boom")

	out, err := unitofwork.New(s).Do(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := flip(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if out.Committed {
		t.Error("failed run reported committed")
	}
	if s.Enrollment(1).Status != enrollment.StatusActive {
		t.Error("write survived a failed run")
	}
}

func TestDoRollbackPolicy(t *testing.T) {
	t.Parallel()
	s := newStore()
	out, err := unitofwork.New(s, unitofwork.WithPolicy(dropout.PolicyRollback)).Do(context.Background(), flip)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out.Committed {
		t.Error("rollback policy reported committed")
	}
	if s.Enrollment(1).Status != enrollment.StatusActive {
		t.Error("rollback policy persisted a write")
	}
}

func TestDoRollsBackOnPanic(t *testing.T) {
	t.Parallel()
	s := newStore()

	defer func() {
		if r := recover(); r != "kaboom" {
			t.Fatalf("expected panic to be re-raised, got %v", r)
		}
		if s.Enrollment(1).Status != enrollment.StatusActive {
			t.Error("write survived a panicking run")
		}
	}()

	_, _ = unitofwork.New(s).Do(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_ = flip(ctx, tx)
		panic("kaboom")
	})
}

type brokenBeginner struct{}

func (brokenBeginner) Begin(context.Context) (store.Tx, error) {
	return nil, errors.New("no connection")
}

func TestDoBeginFailure(t *testing.T) {
	t.Parallel()
	called := false
	_, err := unitofwork.New(brokenBeginner{}).Do(context.Background(), func(context.Context, store.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, dropout.ErrRepository) {
		t.Fatalf("expected repository error, got %v", err)
	}
	if called {
		t.Error("body ran without a transaction")
	}
}

// commitFailTx fails Commit and counts rollbacks.
type commitFailTx struct {
	store.Tx
	rollbacks int
}

func (c *commitFailTx) Commit(context.Context) error { return errors.New("serialization failure") }

func (c *commitFailTx) Rollback(ctx context.Context) error {
	c.rollbacks++
	return c.Tx.Rollback(ctx)
}

type commitFailBeginner struct {
	s  *memory.Store
	tx *commitFailTx
}

func (b *commitFailBeginner) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := b.s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	b.tx = &commitFailTx{Tx: tx}
	return b.tx, nil
}

func TestDoCommitFailure(t *testing.T) {
	t.Parallel()
	b := &commitFailBeginner{s: newStore()}
	out, err := unitofwork.New(b).Do(context.Background(), flip)

	var re *dropout.RepositoryError
	if !errors.As(err, &re) || re.Op != "commit" {
		t.Fatalf("expected commit repository error, got %v", err)
	}
	if out.Committed {
		t.Error("failed commit reported committed")
	}
	if b.tx.rollbacks != 1 {
		t.Errorf("rollbacks = %d, want 1", b.tx.rollbacks)
	}
}
