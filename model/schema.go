package model

// Field declares one expected column of an input file.
type Field struct {
	Name     string
	Type     ColumnType
	Required bool
}

// Schema lists the columns a loader expects. Optional fields missing from a
// file are still added to the table, filled with nulls.
type Schema []Field

// Columns returns the schema as table columns.
func (s Schema) Columns() []Column {
	cols := make([]Column, len(s))
	for i, f := range s {
		cols[i] = Column{Name: f.Name, Type: f.Type}
	}
	return cols
}

// Required returns the required fields as table columns.
func (s Schema) Required() []Column {
	var cols []Column
	for _, f := range s {
		if f.Required {
			cols = append(cols, Column{Name: f.Name, Type: f.Type})
		}
	}
	return cols
}

// Lookup returns the field named name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func req(name string, t ColumnType) Field { return Field{Name: name, Type: t, Required: true} }
func opt(name string, t ColumnType) Field { return Field{Name: name, Type: t} }

var (
	BankTransactionSchema = Schema{
		req("bank_account_id", NumberColumn),
		req("client_id", NumberColumn),
		req("txn_date", TimeColumn),
		req("txn_amount", NumberColumn),
		req("txn_description", StringColumn),
		opt("check_num", StringColumn),
		opt("txn_type", StringColumn),
		opt("banktxn_id", StringColumn),
		opt("created_at", TimeColumn),
		opt("completed_at", TimeColumn),
	}

	BankStatementSchema = Schema{
		req("bank_account_id", NumberColumn),
		req("client_id", NumberColumn),
		req("stmt_start_date", TimeColumn),
		req("stmt_end_date", TimeColumn),
		req("txn_date", TimeColumn),
		req("txn_amount", NumberColumn),
		req("txn_description", StringColumn),
		opt("stmt_generated_date", TimeColumn),
		opt("check_num", StringColumn),
		opt("txn_type", StringColumn),
		opt("row_id", StringColumn),
	}

	BankAccountSchema = Schema{
		req("bank_account_id", NumberColumn),
		req("client_id", NumberColumn),
		opt("account_name", StringColumn),
		opt("created_at", TimeColumn),
	}

	ARSchema = Schema{
		req("invoice_id", StringColumn),
		req("customer_id", StringColumn),
		req("date", TimeColumn),
		req("amount", NumberColumn),
		opt("type", StringColumn),
		opt("due_date", TimeColumn),
	}

	GLARSchema = Schema{
		req("invoice_id", StringColumn),
		req("date", TimeColumn),
		req("amount", NumberColumn),
		opt("type", StringColumn),
	}

	AllowanceSchema = Schema{
		req("invoice_id", StringColumn),
		req("amount", NumberColumn),
		opt("type", StringColumn),
		opt("date", TimeColumn),
	}

	APSchema = Schema{
		req("bill_id", StringColumn),
		req("vendor_id", StringColumn),
		req("date", TimeColumn),
		req("amount", NumberColumn),
		opt("payment_method", StringColumn),
		opt("transaction_id", StringColumn),
		opt("status", StringColumn),
	}

	GLAPSchema = Schema{
		req("bill_id", StringColumn),
		req("date", TimeColumn),
		req("amount", NumberColumn),
	}

	CreditCardSchema = Schema{
		req("transaction_id", StringColumn),
		req("amount", NumberColumn),
		opt("date", TimeColumn),
		opt("merchant", StringColumn),
	}

	BatchPaymentSchema = Schema{
		req("batch_id", StringColumn),
		req("bill_id", StringColumn),
		req("amount", NumberColumn),
		req("status", StringColumn),
		opt("date", TimeColumn),
	}

	FixedAssetSchema = Schema{
		req("asset_id", StringColumn),
		req("amount", NumberColumn),
		opt("date", TimeColumn),
		opt("asset_name", StringColumn),
		opt("category", StringColumn),
	}

	GLFixedAssetSchema = Schema{
		req("asset_id", StringColumn),
		req("date", TimeColumn),
		req("amount", NumberColumn),
		req("transaction_type", StringColumn),
	}

	DepreciationSchema = Schema{
		req("date", TimeColumn),
		req("amount", NumberColumn),
		opt("asset_id", StringColumn),
	}

	GLInventorySchema = Schema{
		req("item_id", StringColumn),
		req("location_id", StringColumn),
		req("quantity_gl", NumberColumn),
		req("unit_cost", NumberColumn),
		req("date", TimeColumn),
		opt("item_category", StringColumn),
	}

	PhysicalCountSchema = Schema{
		req("item_id", StringColumn),
		req("location_id", StringColumn),
		req("quantity_count", NumberColumn),
		opt("count_date", TimeColumn),
		opt("unit_cost", NumberColumn),
	}

	MarketValueSchema = Schema{
		req("item_id", StringColumn),
		req("market_value", NumberColumn),
		opt("valuation_date", TimeColumn),
		opt("item_category", StringColumn),
	}

	APTransactionSchema = Schema{
		req("transaction_date", TimeColumn),
		req("status", StringColumn),
		req("quantity", NumberColumn),
		req("unit_cost", NumberColumn),
		req("vendor_id", StringColumn),
		opt("item_id", StringColumn),
	}

	PrepaidSchema = Schema{
		req("prepaid_id", StringColumn),
		req("amount", NumberColumn),
		opt("date", TimeColumn),
		opt("description", StringColumn),
	}

	AccruedSchema = Schema{
		req("accrual_id", StringColumn),
		req("amount", NumberColumn),
		opt("date", TimeColumn),
		opt("description", StringColumn),
	}

	GLCashEquivalentSchema = Schema{
		req("investment_id", StringColumn),
		req("date", TimeColumn),
		req("amount", NumberColumn),
		opt("instrument_type", StringColumn),
	}

	BrokerStatementSchema = Schema{
		req("investment_id", StringColumn),
		req("date", TimeColumn),
		req("market_value", NumberColumn),
		opt("instrument_type", StringColumn),
	}

	InvestmentSchema = Schema{
		req("investment_id", StringColumn),
		req("instrument_type", StringColumn),
		req("issuer", StringColumn),
		req("amount", NumberColumn),
		req("purchase_date", TimeColumn),
		req("maturity_date", TimeColumn),
	}
)

// KeySpec names the columns used to match rows across two tables and to find
// duplicates within one table.
type KeySpec struct {
	Match     []string `json:"match"`
	Duplicate []string `json:"duplicate"`
}

// MatchKeys holds the key sets of every reconciliation domain.
type MatchKeys struct {
	Bank            KeySpec `json:"bank"`
	AR              KeySpec `json:"ar"`
	AP              KeySpec `json:"ap"`
	CreditCard      KeySpec `json:"credit_card"`
	FixedAssets     KeySpec `json:"fixed_assets"`
	Prepaid         KeySpec `json:"prepaid"`
	Accrued         KeySpec `json:"accrued"`
	CashEquivalents KeySpec `json:"cash_equivalents"`
	Inventory       KeySpec `json:"inventory"`
}

// DefaultMatchKeys returns the key sets used when configuration leaves them out.
func DefaultMatchKeys() MatchKeys {
	bank := []string{"txn_date", "txn_amount", "txn_description"}
	return MatchKeys{
		Bank:            KeySpec{Match: bank, Duplicate: bank},
		AR:              KeySpec{Match: []string{"invoice_id", "amount"}, Duplicate: []string{"invoice_id"}},
		AP:              KeySpec{Match: []string{"bill_id", "amount"}, Duplicate: []string{"bill_id"}},
		CreditCard:      KeySpec{Match: []string{"transaction_id", "amount"}, Duplicate: []string{"transaction_id"}},
		FixedAssets:     KeySpec{Match: []string{"asset_id", "amount"}, Duplicate: []string{"asset_id"}},
		Prepaid:         KeySpec{Match: []string{"prepaid_id"}, Duplicate: []string{"prepaid_id"}},
		Accrued:         KeySpec{Match: []string{"accrual_id"}, Duplicate: []string{"accrual_id"}},
		CashEquivalents: KeySpec{Match: []string{"investment_id", "date"}, Duplicate: []string{"investment_id"}},
		Inventory:       KeySpec{Match: []string{"item_id", "location_id"}, Duplicate: []string{"item_id", "location_id"}},
	}
}

// WithDefaults fills every empty key list from def.
func (k KeySpec) WithDefaults(def KeySpec) KeySpec {
	if len(k.Match) == 0 {
		k.Match = def.Match
	}
	if len(k.Duplicate) == 0 {
		k.Duplicate = def.Duplicate
	}
	return k
}

// WithDefaults fills every empty key list from DefaultMatchKeys.
func (m MatchKeys) WithDefaults() MatchKeys {
	def := DefaultMatchKeys()
	m.Bank = m.Bank.WithDefaults(def.Bank)
	m.AR = m.AR.WithDefaults(def.AR)
	m.AP = m.AP.WithDefaults(def.AP)
	m.CreditCard = m.CreditCard.WithDefaults(def.CreditCard)
	m.FixedAssets = m.FixedAssets.WithDefaults(def.FixedAssets)
	m.Prepaid = m.Prepaid.WithDefaults(def.Prepaid)
	m.Accrued = m.Accrued.WithDefaults(def.Accrued)
	m.CashEquivalents = m.CashEquivalents.WithDefaults(def.CashEquivalents)
	m.Inventory = m.Inventory.WithDefaults(def.Inventory)
	return m
}
