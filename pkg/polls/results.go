// Package polls computes the result table of motion polls.
package polls

import (
	"github.com/shopspring/decimal"

	"github.com/openslides/openslides.go/pkg/models"
)

// Value names a row of the result table.
type Value string

const (
	ValueYes     Value = "yes"
	ValueNo      Value = "no"
	ValueAbstain Value = "abstain"
	ValueValid   Value = "votesvalid"
	ValueInvalid Value = "votesinvalid"
	ValueCast    Value = "votescast"
)

// Special amounts entered for analog polls.
var (
	AmountMajority     = decimal.NewFromInt(-1)
	AmountUndocumented = decimal.NewFromInt(-2)
)

// percentPlaces is the number of decimal places percentages are rounded to.
const percentPlaces = 3

var hundred = decimal.NewFromInt(100)

type Row struct {
	Value  Value
	Amount decimal.Decimal
	// Percent is only meaningful if ShowPercent is set.
	Percent     decimal.Decimal
	ShowPercent bool
}

// Special returns "majority" or "undocumented" for the special amounts.
func (r Row) Special() string {
	switch {
	case r.Amount.Equal(AmountMajority):
		return "majority"
	case r.Amount.Equal(AmountUndocumented):
		return "undocumented"
	default:
		return ""
	}
}

// FormatAmount renders the amount without trailing zeros.
func (r Row) FormatAmount() string {
	if s := r.Special(); s != "" {
		return s
	}
	return r.Amount.String()
}

// FormatPercent renders the percentage, or "" if none is shown.
func (r Row) FormatPercent() string {
	if !r.ShowPercent {
		return ""
	}
	return r.Percent.StringFixed(percentPlaces) + " %"
}

// ResultTable returns the rows yes, no, abstain (for YNA polls only),
// votesvalid, votesinvalid and votescast. The first option of options
// carries the yes/no/abstain amounts; a motion poll has exactly one.
// An empty base uses the poll's own percent base.
func ResultTable(poll *models.MotionPoll, options []*models.MotionOption, base models.PercentBase) []Row {
	if base == "" {
		base = poll.OnehundredPercentBase
	}

	var option models.MotionOption
	if len(options) > 0 && options[0] != nil {
		option = *options[0]
	}

	total := Base(poll, &option, base)

	rows := []Row{
		newRow(ValueYes, option.Yes.Decimal, total, base != models.PercentBaseDisabled),
		newRow(ValueNo, option.No.Decimal, total, base != models.PercentBaseDisabled),
	}
	if poll.PollMethod == models.PollMethodYNA {
		rows = append(rows, newRow(ValueAbstain, option.Abstain.Decimal, total,
			base != models.PercentBaseDisabled && base != models.PercentBaseYN))
	}

	rows = append(rows,
		newRow(ValueValid, poll.VotesValid.Decimal, total,
			base == models.PercentBaseValid || base == models.PercentBaseCast),
		newRow(ValueInvalid, poll.VotesInvalid.Decimal, total, base == models.PercentBaseCast),
		newRow(ValueCast, poll.VotesCast.Decimal, total, base == models.PercentBaseCast),
	)
	return rows
}

// Base returns the amount that 100% refers to. It is zero when no
// percentages are shown, and zero as well when the relevant amounts are
// special values.
func Base(poll *models.MotionPoll, option *models.MotionOption, base models.PercentBase) decimal.Decimal {
	var parts []decimal.Decimal
	switch base {
	case models.PercentBaseYN:
		parts = []decimal.Decimal{option.Yes.Decimal, option.No.Decimal}
	case models.PercentBaseYNA:
		parts = []decimal.Decimal{option.Yes.Decimal, option.No.Decimal, option.Abstain.Decimal}
	case models.PercentBaseValid:
		parts = []decimal.Decimal{poll.VotesValid.Decimal}
	case models.PercentBaseCast:
		parts = []decimal.Decimal{poll.VotesCast.Decimal}
	default:
		return decimal.Zero
	}

	total := decimal.Zero
	for _, p := range parts {
		if p.IsNegative() {
			return decimal.Zero
		}
		total = total.Add(p)
	}
	return total
}

func newRow(v Value, amount, total decimal.Decimal, show bool) Row {
	r := Row{Value: v, Amount: amount}
	if !show || !total.IsPositive() || amount.IsNegative() {
		return r
	}
	r.ShowPercent = true
	r.Percent = amount.Mul(hundred).Div(total).Round(percentPlaces)
	return r
}
