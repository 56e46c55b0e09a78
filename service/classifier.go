package service

import (
	"context"
	"fmt"

	"github.com/ledgerlens/statementchat/model"
	"google.golang.org/genai"
)

var identificationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"statement_type": {Type: genai.TypeString, Enum: []string{"profit_and_loss", "balance_sheet", "unknown"}},
		"confidence":     {Type: genai.TypeNumber},
		"reasoning":      {Type: genai.TypeString},
	},
	Required: []string{"statement_type", "confidence", "reasoning"},
}

func lineItemSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"display_name":    {Type: genai.TypeString},
			"value":           {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
			"period":          {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"parent_category": {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		},
		Required: []string{"display_name"},
	}
}

var profitAndLossSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"statement_type": {Type: genai.TypeString},
		"company_name":   {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"period_start":   {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"period_end":     {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"income_items":   {Type: genai.TypeArray, Items: lineItemSchema()},
		"expense_items":  {Type: genai.TypeArray, Items: lineItemSchema()},
		"cogs_items":     {Type: genai.TypeArray, Items: lineItemSchema()},
		"gross_profit":   {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
		"net_income":     {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
		"total_income":   {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
		"total_expenses": {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
	},
	Required: []string{"statement_type", "income_items", "expense_items", "cogs_items"},
}

var balanceSheetRawSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"statement_type":    {Type: genai.TypeString},
		"company_name":      {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"as_of_date":        {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"time_periods":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"asset_items":       {Type: genai.TypeArray, Items: lineItemSchema()},
		"liability_items":   {Type: genai.TypeArray, Items: lineItemSchema()},
		"equity_items":      {Type: genai.TypeArray, Items: lineItemSchema()},
		"total_assets":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}, Nullable: genai.Ptr(true)},
		"total_liabilities": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}, Nullable: genai.Ptr(true)},
		"total_equity":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}, Nullable: genai.Ptr(true)},
	},
	Required: []string{"statement_type", "time_periods", "asset_items", "liability_items", "equity_items"},
}

const identifyPromptFmt = `Analyze this financial statement and determine if it's a Profit & Loss (P&L) or Balance Sheet.

CSV Content:
%s

Look for indicators:
- P&L: Income, Revenue, Expenses, Net Income, COGS
- Balance Sheet: Assets, Liabilities, Equity, as of [date]

Provide:
- statement_type: one of "profit_and_loss", "balance_sheet", or "unknown"
- confidence: a number between 0 and 1
- reasoning: explanation of your decision

Return your analysis as JSON.`

const parseProfitAndLossPromptFmt = `Parse this Profit & Loss statement into structured JSON.

CSV Content:
%s

IMPORTANT INSTRUCTIONS:
1. Extract the PERIOD INFORMATION from the statement header
2. For each line item, extract the TOTAL value for the period
3. Most P&L statements show TOTALS for the entire period

Extract ALL of the following:
- statement_type: set to "profit_and_loss"
- company_name: company name if available (null if not found)
- period_start: start date of the reporting period in YYYY-MM-DD format (null if not found)
- period_end: end date of the reporting period in YYYY-MM-DD format (null if not found)
- income_items: list of all income/revenue line items with display_name and value
- expense_items: list of all expense line items with display_name and value
- cogs_items: list of all COGS line items with display_name and value
- gross_profit: gross profit total (null if not found)
- net_income: net income total (null if not found)
- total_income: total income (null if not found)
- total_expenses: total expenses (null if not found)

For line items:
- display_name: the account name
- value: the monetary amount for the TOTAL PERIOD (null if not found)
- period: ONLY populate if the statement shows MULTIPLE time period columns (null otherwise)
- parent_category: parent category if nested (null if not found)

Return as JSON.`

const parseBalanceSheetPromptFmt = `Parse this Balance Sheet into structured JSON.

CSV Content:
%s

INSTRUCTIONS:
This Balance Sheet has multiple TIME PERIODS as columns (Jan 2025, Feb 2025, etc.)

For EACH account, create ONE LineItem entry PER TIME PERIOD.

Extract ALL of the following:
- statement_type: "balance_sheet"
- company_name: from first row
- as_of_date: from "As of [date]" line, in YYYY-MM-DD format
- time_periods: list of period labels ["Jan 2025", "Feb 2025", "Mar 2025", ...]
- asset_items: list of LineItem objects (one per account per period)
- liability_items: list of LineItem objects (one per account per period)
- equity_items: list of LineItem objects (one per account per period)
- total_assets: list of total values per period [5488.75, 6246.60, ...]
- total_liabilities: list of total values per period
- total_equity: list of total values per period

Each LineItem must have:
- display_name: account name (e.g., "Checking", "Savings")
- value: numeric amount (use null for empty cells)
- period: time period label (e.g., "Jan 2025", "Feb 2025")
- parent_category: parent category if nested (e.g., "Bank Accounts")

EXAMPLE:
If Checking account has values: 4875.00, 4570.45, 4321.40 for Jan, Feb, Mar
Create THREE LineItem objects:
- {"display_name": "Checking", "value": 4875.00, "period": "Jan 2025", "parent_category": "Bank Accounts"}
- {"display_name": "Checking", "value": 4570.45, "period": "Feb 2025", "parent_category": "Bank Accounts"}
- {"display_name": "Checking", "value": 4321.40, "period": "Mar 2025", "parent_category": "Bank Accounts"}

Return as JSON.`

// Classifier identifies a statement's type and extracts its structured form
// through schema-constrained generation.
type Classifier struct {
	gen Generator
}

func NewClassifier(gen Generator) *Classifier {
	return &Classifier{gen: gen}
}

// Identify determines whether the CSV blob is a P&L or a Balance Sheet. An
// "unknown" verdict comes back as a ClassificationError so nothing gets
// stored for it.
func (c *Classifier) Identify(ctx context.Context, csvContent string) (*model.Identification, error) {
	raw, err := c.gen.GenerateJSON(ctx, fmt.Sprintf(identifyPromptFmt, csvContent), identificationSchema)
	if err != nil {
		return nil, &model.ClassificationError{Reason: "identification request failed", Err: err}
	}

	ident, err := parseIdentification(raw)
	if err != nil {
		return nil, &model.ClassificationError{Reason: "malformed identification response", Err: err, Raw: raw}
	}

	if !ident.StatementType.Storable() {
		return nil, &model.ClassificationError{Reason: ident.Reasoning, Raw: raw}
	}
	return ident, nil
}

// ExtractProfitAndLoss asks the model for the P&L wire document. The raw
// JSON goes to validation before anything is stored.
func (c *Classifier) ExtractProfitAndLoss(ctx context.Context, csvContent string) (string, error) {
	raw, err := c.gen.GenerateJSON(ctx, fmt.Sprintf(parseProfitAndLossPromptFmt, csvContent), profitAndLossSchema)
	if err != nil {
		return "", &model.ClassificationError{Reason: "profit and loss extraction failed", Err: err}
	}
	return raw, nil
}

// ExtractBalanceSheet asks the model for the list-shaped Balance Sheet wire
// document. Validation and the dict transform happen downstream.
func (c *Classifier) ExtractBalanceSheet(ctx context.Context, csvContent string) (string, error) {
	raw, err := c.gen.GenerateJSON(ctx, fmt.Sprintf(parseBalanceSheetPromptFmt, csvContent), balanceSheetRawSchema)
	if err != nil {
		return "", &model.ClassificationError{Reason: "balance sheet extraction failed", Err: err}
	}
	return raw, nil
}
