package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

type RecurrenceEndType string

const (
	RecurrenceEndNever      RecurrenceEndType = "never"
	RecurrenceEndOnDate     RecurrenceEndType = "on_date"
	RecurrenceEndAfterCount RecurrenceEndType = "after_count"
)

func (r RecurrenceEndType) Valid() bool {
	switch r {
	case RecurrenceEndNever, RecurrenceEndOnDate, RecurrenceEndAfterCount:
		return true
	}
	return false
}

var ErrUnknownRecurrenceType = errors.New("unknown recurrence type")

// Recurrence is the series configuration. Only the copy held by the series
// root is authoritative; installments carry a mirror of it.
type Recurrence struct {
	Type        RecurrenceType    `json:"type,omitempty"`
	Interval    int               `json:"interval,omitempty"`
	StartDate   *time.Time        `json:"start_date,omitempty"`
	EndType     RecurrenceEndType `json:"end_type,omitempty"`
	EndDate     *time.Time        `json:"end_date,omitempty"`
	EndCount    *int              `json:"end_count,omitempty"`
	Interrupted bool              `json:"interrupted"`
}

func (r Recurrence) clone() Recurrence {
	c := r
	c.StartDate = cloneTime(r.StartDate)
	c.EndDate = cloneTime(r.EndDate)
	if r.EndCount != nil {
		n := *r.EndCount
		c.EndCount = &n
	}
	return c
}

// Finite reports whether the series stops after a fixed number of installments.
func (r Recurrence) Finite() bool {
	return r.EndType == RecurrenceEndAfterCount && r.EndCount != nil
}

// Advance adds Interval units of Type to base. Month and year steps keep the
// day of month and clamp it to the last day of the target month.
func (r Recurrence) Advance(base time.Time) (time.Time, error) {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Type {
	case RecurrenceDaily:
		return base.AddDate(0, 0, n), nil
	case RecurrenceWeekly:
		return base.AddDate(0, 0, 7*n), nil
	case RecurrenceMonthly:
		return addMonths(base, n), nil
	case RecurrenceYearly:
		return addMonths(base, 12*n), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownRecurrenceType, r.Type)
}

func addMonths(base time.Time, months int) time.Time {
	first := time.Date(base.Year(), base.Month()+time.Month(months), 1, 0, 0, 0, 0, base.Location())
	day := base.Day()
	if last := now.With(first).EndOfMonth().Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}

// CurrentInstallment is the node's position in its series; a root without a
// sequence is the first installment.
func CurrentInstallment(t *Transaction) int {
	if t.Sequence != nil {
		return *t.Sequence
	}
	return 1
}

// TotalInstallments returns nil for open-ended series.
func TotalInstallments(root *Transaction) *int {
	if !root.Recurrence.Finite() {
		return nil
	}
	n := *root.Recurrence.EndCount
	return &n
}

// NextDueDate computes when the installment following node is due, using the
// configuration held by root.
func NextDueDate(root, node *Transaction) (time.Time, error) {
	base := node.BuyDate
	switch {
	case node.DueDate != nil:
		base = *node.DueDate
	case node.PayDate != nil:
		base = *node.PayDate
	}
	return root.Recurrence.Advance(base)
}

// CanGenerateNext reports whether the series may produce an installment after
// node. It does not check whether that installment already exists.
func CanGenerateNext(root, node *Transaction) bool {
	if !node.IsRecurring || !root.IsRecurring {
		return false
	}
	if root.Recurrence.Interrupted {
		return false
	}
	switch root.Recurrence.EndType {
	case RecurrenceEndNever, "":
		return true
	case RecurrenceEndAfterCount:
		if root.Recurrence.EndCount == nil {
			return false
		}
		return CurrentInstallment(node) < *root.Recurrence.EndCount
	case RecurrenceEndOnDate:
		if root.Recurrence.EndDate == nil {
			return true
		}
		next, err := NextDueDate(root, node)
		if err != nil {
			return false
		}
		return !Date(next).After(Date(*root.Recurrence.EndDate))
	}
	return false
}

// InstallmentLabel formats the counter appended to installment descriptions:
// "(03/12)" for finite series, "(3)" otherwise.
func InstallmentLabel(seq int, total *int) string {
	if total == nil {
		return "(" + strconv.Itoa(seq) + ")"
	}
	width := len(strconv.Itoa(*total))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("(%0*d/%0*d)", width, seq, width, *total)
}

// TrimInstallmentLabel removes the counter of installment seq from desc. Only
// the exact label InstallmentLabel(seq, total) is removed, any other trailing
// text is user content.
func TrimInstallmentLabel(desc string, seq int, total *int) string {
	label := InstallmentLabel(seq, total)
	if desc == label {
		return ""
	}
	return strings.TrimSuffix(desc, " "+label)
}

// WithInstallmentLabel appends the counter of installment seq to desc unless
// desc already ends with it.
func WithInstallmentLabel(desc string, seq int, total *int) string {
	base := TrimInstallmentLabel(desc, seq, total)
	label := InstallmentLabel(seq, total)
	if base == "" {
		return label
	}
	return base + " " + label
}

// RelabelInstallment moves desc from the counter of installment from to the
// counter of installment to.
func RelabelInstallment(desc string, from, to int, total *int) string {
	return WithInstallmentLabel(TrimInstallmentLabel(desc, from, total), to, total)
}
