package model

// StatementType discriminates the two record contracts. It is fixed when a
// record is created and determines which shape the remaining fields satisfy.
type StatementType string

const (
	TypeProfitAndLoss StatementType = "profit_and_loss"
	TypeBalanceSheet  StatementType = "balance_sheet"
	// TypeUnknown is a possible classification outcome; it is never stored.
	TypeUnknown StatementType = "unknown"
)

// Storable reports whether the type names one of the two record slots.
func (t StatementType) Storable() bool {
	return t == TypeProfitAndLoss || t == TypeBalanceSheet
}

// Identification is the wire contract of the classification call.
type Identification struct {
	StatementType StatementType `json:"statement_type"`
	Confidence    float64       `json:"confidence"`
	Reasoning     string        `json:"reasoning"`
}

// LineItem is one labeled amount on a statement. Period is set only when the
// statement has multiple time-period columns; Value is nil for empty cells.
type LineItem struct {
	DisplayName    string   `json:"display_name"`
	Value          *float64 `json:"value"`
	Period         *string  `json:"period"`
	ParentCategory *string  `json:"parent_category"`
}

// ProfitAndLoss is the validated profit-and-loss record. Records are never
// mutated after validation; a new upload of the same type replaces the whole
// record.
type ProfitAndLoss struct {
	StatementType StatementType `json:"statement_type"`
	CompanyName   *string       `json:"company_name"`
	PeriodStart   *string       `json:"period_start"`
	PeriodEnd     *string       `json:"period_end"`
	IncomeItems   []LineItem    `json:"income_items"`
	ExpenseItems  []LineItem    `json:"expense_items"`
	COGSItems     []LineItem    `json:"cogs_items"`
	GrossProfit   *float64      `json:"gross_profit"`
	NetIncome     *float64      `json:"net_income"`
	TotalIncome   *float64      `json:"total_income"`
	TotalExpenses *float64      `json:"total_expenses"`
}

// BalanceSheetRaw is the list-based wire shape the model returns for balance
// sheets: one LineItem per account per period. It exists only as the
// validation input; storage uses the dict shape below.
type BalanceSheetRaw struct {
	StatementType    StatementType `json:"statement_type"`
	CompanyName      *string       `json:"company_name"`
	AsOfDate         *string       `json:"as_of_date"`
	TimePeriods      []string      `json:"time_periods"`
	AssetItems       []LineItem    `json:"asset_items"`
	LiabilityItems   []LineItem    `json:"liability_items"`
	EquityItems      []LineItem    `json:"equity_items"`
	TotalAssets      []*float64    `json:"total_assets"`
	TotalLiabilities []*float64    `json:"total_liabilities"`
	TotalEquity      []*float64    `json:"total_equity"`
}

// AccountSeries maps a period label to an amount. A missing period means the
// statement had no data for it, not zero.
type AccountSeries map[string]*float64

// BalanceSheet is the stored balance-sheet record. TimePeriods order is
// significant: it defines the column order for every nested series.
type BalanceSheet struct {
	StatementType    StatementType            `json:"statement_type"`
	CompanyName      *string                  `json:"company_name"`
	AsOfDate         *string                  `json:"as_of_date"`
	TimePeriods      []string                 `json:"time_periods"`
	Assets           map[string]AccountSeries `json:"assets"`
	Liabilities      map[string]AccountSeries `json:"liabilities"`
	Equity           map[string]AccountSeries `json:"equity"`
	TotalAssets      AccountSeries            `json:"total_assets,omitempty"`
	TotalLiabilities AccountSeries            `json:"total_liabilities,omitempty"`
	TotalEquity      AccountSeries            `json:"total_equity,omitempty"`
}

// ToBalanceSheet transforms the validated list shape into the dict shape used
// for storage and querying.
func (raw *BalanceSheetRaw) ToBalanceSheet() *BalanceSheet {
	return &BalanceSheet{
		StatementType:    raw.StatementType,
		CompanyName:      raw.CompanyName,
		AsOfDate:         raw.AsOfDate,
		TimePeriods:      raw.TimePeriods,
		Assets:           itemsToSeries(raw.AssetItems),
		Liabilities:      itemsToSeries(raw.LiabilityItems),
		Equity:           itemsToSeries(raw.EquityItems),
		TotalAssets:      listToSeries(raw.TotalAssets, raw.TimePeriods),
		TotalLiabilities: listToSeries(raw.TotalLiabilities, raw.TimePeriods),
		TotalEquity:      listToSeries(raw.TotalEquity, raw.TimePeriods),
	}
}

func itemsToSeries(items []LineItem) map[string]AccountSeries {
	result := make(map[string]AccountSeries)
	for _, item := range items {
		if item.Period == nil {
			continue
		}
		if _, ok := result[item.DisplayName]; !ok {
			result[item.DisplayName] = make(AccountSeries)
		}
		result[item.DisplayName][*item.Period] = item.Value
	}
	return result
}

func listToSeries(values []*float64, periods []string) AccountSeries {
	if values == nil {
		return nil
	}
	series := make(AccountSeries, len(values))
	for i, v := range values {
		if i >= len(periods) {
			break
		}
		series[periods[i]] = v
	}
	return series
}
