package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecurrence_Advance(t *testing.T) {
	tests := []struct {
		name string
		rec  Recurrence
		base time.Time
		want time.Time
	}{
		{"daily", Recurrence{Type: RecurrenceDaily, Interval: 3}, day(2024, time.December, 30), day(2025, time.January, 2)},
		{"weekly", Recurrence{Type: RecurrenceWeekly, Interval: 2}, day(2024, time.January, 10), day(2024, time.January, 24)},
		{"monthly clamps to leap day", Recurrence{Type: RecurrenceMonthly, Interval: 1}, day(2024, time.January, 31), day(2024, time.February, 29)},
		{"monthly clamps to february", Recurrence{Type: RecurrenceMonthly, Interval: 1}, day(2023, time.January, 31), day(2023, time.February, 28)},
		{"monthly across year", Recurrence{Type: RecurrenceMonthly, Interval: 2}, day(2024, time.November, 30), day(2025, time.January, 30)},
		{"monthly zero interval acts as one", Recurrence{Type: RecurrenceMonthly}, day(2024, time.April, 30), day(2024, time.May, 30)},
		{"yearly from leap day", Recurrence{Type: RecurrenceYearly, Interval: 1}, day(2024, time.February, 29), day(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rec.Advance(tt.base)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	_, err := Recurrence{Type: "hourly"}.Advance(day(2024, time.January, 1))
	require.ErrorIs(t, err, ErrUnknownRecurrenceType)
}

func TestNextDueDate_Base(t *testing.T) {
	root := &Transaction{IsRecurring: true, Recurrence: Recurrence{Type: RecurrenceMonthly, Interval: 1}}
	due := day(2024, time.March, 5)
	paid := day(2024, time.March, 7)

	node := &Transaction{BuyDate: day(2024, time.March, 1)}
	got, err := NextDueDate(root, node)
	require.NoError(t, err)
	assert.True(t, day(2024, time.April, 1).Equal(got), "buy date is the last resort")

	node.PayDate = &paid
	got, err = NextDueDate(root, node)
	require.NoError(t, err)
	assert.True(t, day(2024, time.April, 7).Equal(got))

	node.DueDate = &due
	got, err = NextDueDate(root, node)
	require.NoError(t, err)
	assert.True(t, day(2024, time.April, 5).Equal(got), "due date wins")
}

func TestCanGenerateNext(t *testing.T) {
	three := 3
	two, threeSeq := 2, 3
	end := day(2024, time.March, 1)

	finite := &Transaction{IsRecurring: true, Recurrence: Recurrence{Type: RecurrenceMonthly, Interval: 1, EndType: RecurrenceEndAfterCount, EndCount: &three}}
	never := &Transaction{IsRecurring: true, Recurrence: Recurrence{Type: RecurrenceMonthly, Interval: 1, EndType: RecurrenceEndNever}}
	onDate := &Transaction{IsRecurring: true, Recurrence: Recurrence{Type: RecurrenceMonthly, Interval: 1, EndType: RecurrenceEndOnDate, EndDate: &end}}
	interrupted := &Transaction{IsRecurring: true, Recurrence: Recurrence{Type: RecurrenceMonthly, Interval: 1, EndType: RecurrenceEndNever, Interrupted: true}}

	feb := day(2024, time.February, 1)
	jan := day(2024, time.January, 31)
	tests := []struct {
		name string
		root *Transaction
		node *Transaction
		want bool
	}{
		{"not recurring", never, &Transaction{}, false},
		{"never ending", never, &Transaction{IsRecurring: true, Sequence: &threeSeq}, true},
		{"interrupted", interrupted, &Transaction{IsRecurring: true}, false},
		{"finite below count", finite, &Transaction{IsRecurring: true, Sequence: &two}, true},
		{"finite at count", finite, &Transaction{IsRecurring: true, Sequence: &threeSeq}, false},
		{"root counts as first", finite, &Transaction{IsRecurring: true}, true},
		{"on date before cutoff", onDate, &Transaction{IsRecurring: true, DueDate: &jan}, true},
		{"on date on cutoff", onDate, &Transaction{IsRecurring: true, DueDate: &feb}, true},
		{"on date past cutoff", onDate, &Transaction{IsRecurring: true, DueDate: &end}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanGenerateNext(tt.root, tt.node))
		})
	}
}

func TestTotalInstallments(t *testing.T) {
	n := 12
	assert.Nil(t, TotalInstallments(&Transaction{Recurrence: Recurrence{EndType: RecurrenceEndNever}}))
	assert.Nil(t, TotalInstallments(&Transaction{Recurrence: Recurrence{EndType: RecurrenceEndOnDate, EndCount: &n}}))
	got := TotalInstallments(&Transaction{Recurrence: Recurrence{EndType: RecurrenceEndAfterCount, EndCount: &n}})
	require.NotNil(t, got)
	assert.Equal(t, 12, *got)
}

func TestInstallmentLabels(t *testing.T) {
	twelve, hundred := 12, 100

	assert.Equal(t, "(03/12)", InstallmentLabel(3, &twelve))
	assert.Equal(t, "(007/100)", InstallmentLabel(7, &hundred))
	assert.Equal(t, "(4)", InstallmentLabel(4, nil))

	assert.Equal(t, "Rent (02/12)", WithInstallmentLabel("Rent", 2, &twelve))
	assert.Equal(t, "Rent (02/12)", WithInstallmentLabel("Rent (02/12)", 2, &twelve))
	assert.Equal(t, "(2)", WithInstallmentLabel("", 2, nil))
	assert.Equal(t, "Rent (05/12)", RelabelInstallment("Rent (04/12)", 4, 5, &twelve))
	assert.Equal(t, "Gym (9)", RelabelInstallment("Gym (8)", 8, 9, nil))
	assert.Equal(t, "", TrimInstallmentLabel("(3)", 3, nil))

	t.Run("user text in parentheses is kept", func(t *testing.T) {
		three := 3
		assert.Equal(t, "Property tax (2024) (02/03)", WithInstallmentLabel("Property tax (2024)", 2, &three))
		assert.Equal(t, "Property tax (2024)", TrimInstallmentLabel("Property tax (2024)", 1, &three))
		assert.Equal(t, "Plan (7)", TrimInstallmentLabel("Plan (7)", 2, nil))
		assert.Equal(t, "Fee (2024) (3)", RelabelInstallment("Fee (2024) (4)", 4, 3, nil))
	})
}

func TestTransaction_DerivedFields(t *testing.T) {
	paid := day(2024, time.January, 2)
	txn := &Transaction{TransactionType: TransactionTypeDebit, ParentID: new(int64)}
	assert.Equal(t, StatusPending, txn.Status())
	assert.False(t, txn.IsRoot())

	txn.PayDate = &paid
	assert.Equal(t, StatusRegistered, txn.Status())

	clone := txn.Clone()
	*clone.PayDate = day(2025, time.January, 1)
	*clone.ParentID = 9
	assert.True(t, paid.Equal(*txn.PayDate))
	assert.Zero(t, *txn.ParentID)
}
