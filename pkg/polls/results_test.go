package polls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openslides/openslides.go/pkg/models"
)

func poll(method models.PollMethod, base models.PercentBase, valid, invalid, cast float64) *models.MotionPoll {
	return &models.MotionPoll{
		ID:                    models.IntID(1),
		PollMethod:            method,
		OnehundredPercentBase: base,
		VotesValid:            models.NewDecimal(valid),
		VotesInvalid:          models.NewDecimal(invalid),
		VotesCast:             models.NewDecimal(cast),
	}
}

func option(yes, no, abstain float64) []*models.MotionOption {
	return []*models.MotionOption{{
		ID:      models.IntID(1),
		Yes:     models.NewDecimal(yes),
		No:      models.NewDecimal(no),
		Abstain: models.NewDecimal(abstain),
	}}
}

type want struct {
	value   Value
	amount  string
	percent string
}

func assertRows(t *testing.T, rows []Row, expected ...want) {
	t.Helper()
	require.Len(t, rows, len(expected))
	for i, w := range expected {
		assert.Equal(t, w.value, rows[i].Value, "row %d", i)
		assert.Equal(t, w.amount, rows[i].FormatAmount(), "row %d (%s)", i, w.value)
		assert.Equal(t, w.percent, rows[i].FormatPercent(), "row %d (%s)", i, w.value)
	}
}

func TestResultTable_YNA(t *testing.T) {
	p := poll(models.PollMethodYNA, models.PercentBaseYNA, 10, 1, 11)

	assertRows(t, ResultTable(p, option(5, 3, 2), ""),
		want{ValueYes, "5", "50.000 %"},
		want{ValueNo, "3", "30.000 %"},
		want{ValueAbstain, "2", "20.000 %"},
		want{ValueValid, "10", ""},
		want{ValueInvalid, "1", ""},
		want{ValueCast, "11", ""},
	)
}

func TestResultTable_YNBaseHidesAbstain(t *testing.T) {
	p := poll(models.PollMethodYNA, models.PercentBaseYN, 10, 0, 10)

	assertRows(t, ResultTable(p, option(2, 1, 7), ""),
		want{ValueYes, "2", "66.667 %"},
		want{ValueNo, "1", "33.333 %"},
		want{ValueAbstain, "7", ""},
		want{ValueValid, "10", ""},
		want{ValueInvalid, "0", ""},
		want{ValueCast, "10", ""},
	)
}

func TestResultTable_YNPollHasNoAbstainRow(t *testing.T) {
	p := poll(models.PollMethodYN, models.PercentBaseValid, 8, 0, 8)

	assertRows(t, ResultTable(p, option(6, 2, 0), ""),
		want{ValueYes, "6", "75.000 %"},
		want{ValueNo, "2", "25.000 %"},
		want{ValueValid, "8", "100.000 %"},
		want{ValueInvalid, "0", ""},
		want{ValueCast, "8", ""},
	)
}

func TestResultTable_CastBase(t *testing.T) {
	p := poll(models.PollMethodYNA, models.PercentBaseYNA, 18, 2, 20)

	assertRows(t, ResultTable(p, option(9, 6, 3), models.PercentBaseCast),
		want{ValueYes, "9", "45.000 %"},
		want{ValueNo, "6", "30.000 %"},
		want{ValueAbstain, "3", "15.000 %"},
		want{ValueValid, "18", "90.000 %"},
		want{ValueInvalid, "2", "10.000 %"},
		want{ValueCast, "20", "100.000 %"},
	)
}

func TestResultTable_Disabled(t *testing.T) {
	p := poll(models.PollMethodYN, models.PercentBaseDisabled, 3, 0, 3)

	for _, r := range ResultTable(p, option(2, 1, 0), "") {
		assert.False(t, r.ShowPercent, r.Value)
	}
}

func TestResultTable_SpecialAmounts(t *testing.T) {
	p := poll(models.PollMethodYNA, models.PercentBaseYNA, -2, -2, -2)

	rows := ResultTable(p, option(-1, 3, 0), "")
	assertRows(t, rows,
		want{ValueYes, "majority", ""},
		want{ValueNo, "3", ""},
		want{ValueAbstain, "0", ""},
		want{ValueValid, "undocumented", ""},
		want{ValueInvalid, "undocumented", ""},
		want{ValueCast, "undocumented", ""},
	)
	assert.Equal(t, "majority", rows[0].Special())
	assert.Empty(t, rows[1].Special())
}

func TestResultTable_NoOptions(t *testing.T) {
	p := poll(models.PollMethodYN, models.PercentBaseYN, 0, 0, 0)

	rows := ResultTable(p, nil, "")
	require.Len(t, rows, 5)
	for _, r := range rows {
		assert.True(t, r.Amount.IsZero())
		assert.False(t, r.ShowPercent)
	}
}

func TestBase(t *testing.T) {
	p := poll(models.PollMethodYNA, models.PercentBaseYNA, 12, 1, 13)
	o := option(4, 5, 3)[0]

	assert.Equal(t, "9", Base(p, o, models.PercentBaseYN).String())
	assert.Equal(t, "12", Base(p, o, models.PercentBaseYNA).String())
	assert.Equal(t, "12", Base(p, o, models.PercentBaseValid).String())
	assert.Equal(t, "13", Base(p, o, models.PercentBaseCast).String())
	assert.True(t, Base(p, o, models.PercentBaseDisabled).IsZero())
}
