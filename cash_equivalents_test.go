package recon

import (
	"fmt"
	"testing"

	"github.com/blnkfinance/recon/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func investment(id, kind, issuer string, amount float64, purchased, matures string) rec {
	return rec{
		"investment_id": model.Str(id), "instrument_type": model.Str(kind), "issuer": model.Str(issuer),
		"amount": model.Num(amount), "purchase_date": day(purchased), "maturity_date": day(matures),
	}
}

func glHolding(id, d string, amount float64, kind string) rec {
	return rec{"investment_id": model.Str(id), "date": day(d), "amount": model.Num(amount), "instrument_type": model.Str(kind)}
}

func brokerLine(id, d string, value float64, kind model.Value) rec {
	return rec{"investment_id": model.Str(id), "date": day(d), "market_value": model.Num(value), "instrument_type": kind}
}

func sampleCashEquivalents(t *testing.T) (gl, broker, investments *model.Table) {
	investments = table(t, model.InvestmentSchema,
		investment("INV1", "tbill", "Treasury", 1000, "2024-06-01", "2024-08-29"),
		investment("INV2", "cd", "BankA", 2000, "2024-05-01", "2024-12-31"),
		investment("INV3", "mmf", "FundCo", 1000, "2024-06-15", "2024-07-15"),
	)
	gl = table(t, model.GLCashEquivalentSchema,
		glHolding("INV1", "2024-06-30", 1000, "tbill"),
		glHolding("INV2", "2024-06-30", 2000, "cd"),
		glHolding("INV3", "2024-06-30", 1000, "mmf"),
	)
	broker = table(t, model.BrokerStatementSchema,
		brokerLine("INV1", "2024-06-30", 1010, model.Str("tbill")),
		brokerLine("INV2", "2024-05-31", 1990, model.Str("cd")),
		brokerLine("INV2", "2024-06-30", 2020, model.Str("cd")),
		brokerLine("INV9", "2024-06-30", 500, model.Null()),
	)
	return gl, broker, investments
}

func TestCashEquivalentsMaturity(t *testing.T) {
	gl, broker, investments := sampleCashEquivalents(t)

	res, err := ReconcileCashEquivalents(gl, broker, investments, testOptions("2024-06-30"))
	require.NoError(t, err)

	m := res.Maturity
	assert.Equal(t, []string{"INV2"}, texts(m.NonCompliant, "investment_id"))
	days, _ := m.NonCompliant.Value(0, "days_to_maturity").AsFloat()
	assert.Equal(t, 184.0, days)
	assertMoney(t, "4000", m.TotalAmount)
	assertMoney(t, "2000", m.CompliantAmount)

	require.Len(t, m.ByType, 3)
	assert.Equal(t, "cd", m.ByType[0].Type)
	assert.Equal(t, 184, m.ByType[0].MaxDays)
	assert.Equal(t, 60.0, m.ByType[2].MeanDays)
}

func TestCashEquivalentsMarketValues(t *testing.T) {
	gl, broker, investments := sampleCashEquivalents(t)

	res, err := ReconcileCashEquivalents(gl, broker, investments, testOptions("2024-06-30"))
	require.NoError(t, err)

	mv := res.MarketValues
	assertMoney(t, "4000", mv.TotalBookValue)
	assertMoney(t, "5520", mv.TotalMarketValue)
	assertMoney(t, "30", mv.TotalUnrealizedGainLoss)
	assert.InDelta(t, 0.0075, mv.TotalReturn, 1e-9)
	assert.Equal(t, []string{"INV3"}, texts(mv.UnmatchedGL, "investment_id"))
	assert.Equal(t, []string{"INV2", "INV9"}, texts(mv.UnmatchedBroker, "investment_id"))

	require.Len(t, mv.ByType, 3)
	cd := mv.ByType[0]
	assert.Equal(t, "cd", cd.Type)
	assertMoney(t, "2000", cd.BookValue)
	assertMoney(t, "4010", cd.MarketValue)
	assertMoney(t, "20", cd.UnrealizedGainLoss)
	assert.InDelta(t, 0.01, cd.MeanReturn, 1e-9)
	assert.Equal(t, "mmf", mv.ByType[1].Type)
	assert.Zero(t, mv.ByType[1].MeanReturn)
}

func TestCashEquivalentsYields(t *testing.T) {
	gl, broker, investments := sampleCashEquivalents(t)

	res, err := ReconcileCashEquivalents(gl, broker, investments, testOptions("2024-06-30"))
	require.NoError(t, err)

	tbill := 0.01 * 365 / 89
	cd := 0.01 * 365 / 244
	y := res.Yields
	assert.InDelta(t, (tbill+cd)/2, y.AverageYield, 1e-9)
	assert.InDelta(t, tbill, y.HighestYield, 1e-9)
	assert.InDelta(t, cd, y.LowestYield, 1e-9)
	require.Len(t, y.ByType, 3)
	assert.Equal(t, "mmf", y.ByType[1].Type)
	assert.Zero(t, y.ByType[1].Mean, "no broker quote")
	assertMoney(t, "1000", y.ByType[1].Amount)
}

func TestCashEquivalentsConcentration(t *testing.T) {
	gl, broker, investments := sampleCashEquivalents(t)

	res, err := ReconcileCashEquivalents(gl, broker, investments, testOptions("2024-06-30"))
	require.NoError(t, err)

	c := res.Concentration
	require.Len(t, c.ByInstrumentType, 3)
	assert.InDelta(t, 0.5, c.ByInstrumentType[0].Concentration, 1e-9)
	assert.Len(t, c.HighConcentrationTypes, 3)
	assert.Len(t, c.HighConcentrationIssuers, 3)
	assert.False(t, c.IsCompliant)
	assert.Equal(t, NonCompliant, res.ComplianceStatus)
	assert.Equal(t, 0, res.DuplicateInvestments.Len())

	for _, line := range []string{
		"Total Book Value: $4000.00\n",
		"Total Market Value: $5520.00\n",
		"Unrealized Gain/Loss: $30.00\n",
		"Compliance Status: Non-Compliant\n",
		"- Non-compliant Amount: $2000.00\n",
		"- Average Yield: 2.80%\n",
		"- Highest Yield: 4.10%\n",
		"- Lowest Yield: 1.50%\n",
		"- High Concentration Types: 3\n",
		"- Overall Compliant: false",
	} {
		assert.Contains(t, res.Message, line)
	}
}

func TestCashEquivalentsCompliant(t *testing.T) {
	var records []rec
	for i := 0; i < 10; i++ {
		records = append(records, investment(fmt.Sprintf("INV%d", i), fmt.Sprintf("type-%d", i), fmt.Sprintf("issuer-%d", i), 100, "2024-06-01", "2024-07-31"))
	}
	investments := table(t, model.InvestmentSchema, records...)
	gl := table(t, model.GLCashEquivalentSchema)
	broker := table(t, model.BrokerStatementSchema)

	res, err := ReconcileCashEquivalents(gl, broker, investments, testOptions("2024-06-30"))
	require.NoError(t, err)
	assert.True(t, res.Concentration.IsCompliant)
	assert.Equal(t, Compliant, res.ComplianceStatus)
	assert.Equal(t, 0, res.Maturity.NonCompliant.Len())
	assert.Zero(t, res.Yields.AverageYield)
}

func TestCashEquivalentsDuplicateInvestments(t *testing.T) {
	gl, broker, _ := sampleCashEquivalents(t)
	investments := table(t, model.InvestmentSchema,
		investment("INV1", "tbill", "Treasury", 1000, "2024-06-01", "2024-08-29"),
		investment("INV1", "tbill", "Treasury", 1000, "2024-06-01", "2024-08-29"),
	)

	res, err := ReconcileCashEquivalents(gl, broker, investments, testOptions("2024-06-30"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.DuplicateInvestments.Len())
}
