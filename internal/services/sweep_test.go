package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingCount(members []*model.Transaction) int {
	n := 0
	for _, m := range members {
		if !m.IsRegistered() {
			n++
		}
	}
	return n
}

func TestLedgerService_GenerateDue(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	never := model.Recurrence{Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndNever}
	three, two := 3, 2

	missing, _ := f.series(t, never, true, true)
	waiting, _ := f.series(t, never, true, false)
	finite, _ := f.series(t, model.Recurrence{
		Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndAfterCount, EndCount: &three,
	}, true)
	ended, _ := f.series(t, model.Recurrence{
		Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndAfterCount, EndCount: &two,
	}, true, true)
	stopped := never
	stopped.Interrupted = true
	interrupted, _ := f.series(t, stopped, true)

	t.Run("nothing is due before the cutoff", func(t *testing.T) {
		n, err := f.svc.GenerateDue(ctx, helpers.Day(2024, time.January, 5), 2)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	n, err := f.svc.GenerateDue(ctx, helpers.Day(2024, time.May, 15), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	t.Run("registered tip gets exactly one successor", func(t *testing.T) {
		members := f.members(t, missing.ID)
		require.Len(t, members, 2)
		last := members[1]
		assert.Equal(t, 3, seqOf(last))
		assertDay(t, helpers.Day(2024, time.March, 10), last.DueDate)
		assert.Equal(t, 1, pendingCount(members))
	})

	t.Run("pending tip is left alone", func(t *testing.T) {
		members := f.members(t, waiting.ID)
		require.Len(t, members, 1)
		assert.Equal(t, 1, pendingCount(members))
	})

	t.Run("finite series continues up to its count", func(t *testing.T) {
		members := f.members(t, finite.ID)
		require.Len(t, members, 1)
		assert.Equal(t, 2, seqOf(members[0]))
		assert.Equal(t, "Gym (02/03)", members[0].Description)
	})

	t.Run("ended and interrupted series are left alone", func(t *testing.T) {
		assert.Len(t, f.members(t, ended.ID), 1)
		assert.Empty(t, f.members(t, interrupted.ID))
	})

	t.Run("second run has nothing to do", func(t *testing.T) {
		n, err := f.svc.GenerateDue(ctx, helpers.Day(2024, time.December, 31), 2)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestLedgerService_SkipAfterGenerateDue(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	root, _ := f.series(t, model.Recurrence{Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndNever}, true)

	n, err := f.svc.GenerateDue(ctx, helpers.Day(2024, time.June, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	members := f.members(t, root.ID)
	require.Len(t, members, 1)
	replacement, err := f.svc.Skip(ctx, members[0].ID)
	require.NoError(t, err)

	members = f.members(t, root.ID)
	require.Len(t, members, 1, "one pending installment per series")
	assert.Equal(t, replacement.ID, members[0].ID)
	assert.Equal(t, 2, seqOf(replacement))
	assertDay(t, helpers.Day(2024, time.March, 10), replacement.DueDate)
}
