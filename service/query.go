package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledgerlens/statementchat/model"
)

// dataContext is the JSON document embedded in the analyst prompt. It mirrors
// the stored records minus fields the model has no use for.
type dataContext struct {
	HasPL  bool       `json:"has_pl"`
	HasBS  bool       `json:"has_bs"`
	PLData *plContext `json:"pl_data,omitempty"`
	BSData *bsContext `json:"bs_data,omitempty"`
}

type plContext struct {
	PeriodStart   *string          `json:"period_start"`
	PeriodEnd     *string          `json:"period_end"`
	TotalIncome   *float64         `json:"total_income"`
	TotalExpenses *float64         `json:"total_expenses"`
	GrossProfit   *float64         `json:"gross_profit"`
	NetIncome     *float64         `json:"net_income"`
	IncomeItems   []model.LineItem `json:"income_items"`
	ExpenseItems  []model.LineItem `json:"expense_items"`
	COGSItems     []model.LineItem `json:"cogs_items"`
}

type bsContext struct {
	TimePeriods      []string                       `json:"time_periods"`
	AsOfDate         *string                        `json:"as_of_date"`
	TotalAssets      model.AccountSeries            `json:"total_assets"`
	TotalLiabilities model.AccountSeries            `json:"total_liabilities"`
	TotalEquity      model.AccountSeries            `json:"total_equity"`
	Assets           map[string]model.AccountSeries `json:"assets"`
	Liabilities      map[string]model.AccountSeries `json:"liabilities"`
	Equity           map[string]model.AccountSeries `json:"equity"`
}

const queryPromptFmt = `You are a financial data analyst. Answer the following question using the provided financial data.

USER QUESTION: %s

AVAILABLE FINANCIAL DATA:
` + "```json\n%s\n```" + `

INSTRUCTIONS:
1. Analyze the question and determine what financial data is needed
2. Write Python code to extract and calculate the answer
3. The Balance Sheet data uses a DICT structure: assets/liabilities/equity are dicts where:
   - Keys are account names (e.g., "Checking", "Savings")
   - Values are dicts with periods as keys (e.g., {"Apr 2025": 1201.00})
4. Handle None/null values appropriately
5. Format monetary values with proper currency formatting
6. Provide clear, concise explanation

EXAMPLE CODE for Balance Sheet:
` + "```python" + `
import json

data_json = '''%s'''
data = json.loads(data_json)

# Access checking balance for April 2025
if data.get('has_bs'):
    bs_data = data['bs_data']
    checking_data = bs_data['assets'].get('Checking', {})
    april_balance = checking_data.get('Apr 2025')

    if april_balance is not None:
        print(f"Checking balance in Apr 2025: ${april_balance:,.2f}")
` + "```" + `

Generate and execute code to answer the question, then provide a clear summary.`

// QueryResult is the answer to one question: the prose response plus the
// code the model ran to compute it.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Code    []string `json:"code,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
}

// Querier answers questions about a session's statements through
// code-execution prompting.
type Querier struct {
	gen Generator
}

func NewQuerier(gen Generator) *Querier {
	return &Querier{gen: gen}
}

// Answer runs one question against the session's stored records.
func (q *Querier) Answer(ctx context.Context, session *Session, question string) (*QueryResult, error) {
	if !session.HasData() {
		return nil, &model.QueryError{Reason: "no financial statements uploaded yet"}
	}

	prompt, err := buildQueryPrompt(session, question)
	if err != nil {
		return nil, &model.QueryError{Reason: "failed to build prompt", Err: err}
	}

	result, err := q.gen.GenerateWithCode(ctx, prompt)
	if err != nil {
		return nil, &model.QueryError{Reason: "analysis request failed", Err: err}
	}

	return &QueryResult{
		Answer:  result.Text,
		Code:    result.Code,
		Outputs: result.Outputs,
	}, nil
}

func buildQueryPrompt(session *Session, question string) (string, error) {
	dc := dataContext{
		HasPL: session.ProfitAndLoss != nil,
		HasBS: session.BalanceSheet != nil,
	}
	if pl := session.ProfitAndLoss; pl != nil {
		dc.PLData = &plContext{
			PeriodStart:   pl.PeriodStart,
			PeriodEnd:     pl.PeriodEnd,
			TotalIncome:   pl.TotalIncome,
			TotalExpenses: pl.TotalExpenses,
			GrossProfit:   pl.GrossProfit,
			NetIncome:     pl.NetIncome,
			IncomeItems:   pl.IncomeItems,
			ExpenseItems:  pl.ExpenseItems,
			COGSItems:     pl.COGSItems,
		}
	}
	if bs := session.BalanceSheet; bs != nil {
		dc.BSData = &bsContext{
			TimePeriods:      bs.TimePeriods,
			AsOfDate:         bs.AsOfDate,
			TotalAssets:      bs.TotalAssets,
			TotalLiabilities: bs.TotalLiabilities,
			TotalEquity:      bs.TotalEquity,
			Assets:           bs.Assets,
			Liabilities:      bs.Liabilities,
			Equity:           bs.Equity,
		}
	}

	pretty, err := json.MarshalIndent(dc, "", "  ")
	if err != nil {
		return "", err
	}
	compact, err := json.Marshal(dc)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(queryPromptFmt, question, pretty, compact), nil
}
