package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/ledgerlens/statementchat/model"
	"github.com/ledgerlens/statementchat/pkg/logger"
	"github.com/shopspring/decimal"
)

// decodeJSON unmarshals the model's output, falling back to repair when the
// document is malformed (truncated, single quotes, trailing commas). Unknown
// fields are ignored.
func decodeJSON(raw string, dst any) error {
	if err := json.Unmarshal([]byte(raw), dst); err == nil {
		return nil
	}

	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	return json.Unmarshal([]byte(repaired), dst)
}

func parseIdentification(raw string) (*model.Identification, error) {
	var ident model.Identification
	if err := decodeJSON(raw, &ident); err != nil {
		return nil, err
	}

	switch ident.StatementType {
	case model.TypeProfitAndLoss, model.TypeBalanceSheet, model.TypeUnknown:
	default:
		return nil, fmt.Errorf("unexpected statement_type %q", ident.StatementType)
	}
	if ident.Confidence < 0 || ident.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v outside [0, 1]", ident.Confidence)
	}
	return &ident, nil
}

// isDate reports whether s is a YYYY-MM-DD date.
func isDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validateDate(field string, s *string, raw string) *model.ValidationError {
	if s == nil || *s == "" {
		return nil
	}
	if !isDate(*s) {
		return &model.ValidationError{Field: field, Reason: fmt.Sprintf("date %q is not in YYYY-MM-DD format", *s), Raw: raw}
	}
	return nil
}

func validateItems(field string, items []model.LineItem, raw string) *model.ValidationError {
	for i, item := range items {
		if item.DisplayName == "" {
			return &model.ValidationError{
				Field:  fmt.Sprintf("%s[%d].display_name", field, i),
				Reason: "display_name must not be empty",
				Raw:    raw,
			}
		}
	}
	return nil
}

// ValidateProfitAndLoss checks the extracted P&L document and returns the
// typed record, or the first offending field. Validation is all-or-nothing:
// on error nothing is stored.
func ValidateProfitAndLoss(ctx context.Context, raw string) (*model.ProfitAndLoss, error) {
	var pl model.ProfitAndLoss
	if err := decodeJSON(raw, &pl); err != nil {
		return nil, &model.ValidationError{Field: "", Reason: err.Error(), Raw: raw}
	}

	if pl.StatementType != model.TypeProfitAndLoss {
		return nil, &model.ValidationError{
			Field:  "statement_type",
			Reason: fmt.Sprintf("expected %q, got %q", model.TypeProfitAndLoss, pl.StatementType),
			Raw:    raw,
		}
	}
	if err := validateDate("period_start", pl.PeriodStart, raw); err != nil {
		return nil, err
	}
	if err := validateDate("period_end", pl.PeriodEnd, raw); err != nil {
		return nil, err
	}
	if err := validateItems("income_items", pl.IncomeItems, raw); err != nil {
		return nil, err
	}
	if err := validateItems("expense_items", pl.ExpenseItems, raw); err != nil {
		return nil, err
	}
	if err := validateItems("cogs_items", pl.COGSItems, raw); err != nil {
		return nil, err
	}

	checkNetIncomeConsistency(ctx, &pl)

	return &pl, nil
}

// checkNetIncomeConsistency compares the reported net income against the
// reported totals. A mismatch is worth a warning but not a rejection:
// statements round, and some omit COGS from total_expenses.
func checkNetIncomeConsistency(ctx context.Context, pl *model.ProfitAndLoss) {
	if pl.NetIncome == nil || pl.TotalIncome == nil || pl.TotalExpenses == nil {
		return
	}

	income := decimal.NewFromFloat(*pl.TotalIncome)
	expenses := decimal.NewFromFloat(*pl.TotalExpenses)
	cogs := decimal.Zero
	for _, item := range pl.COGSItems {
		if item.Value != nil {
			cogs = cogs.Add(decimal.NewFromFloat(*item.Value))
		}
	}

	reported := decimal.NewFromFloat(*pl.NetIncome)
	tolerance := decimal.NewFromFloat(0.01)

	withCOGS := income.Sub(expenses).Sub(cogs)
	withoutCOGS := income.Sub(expenses)
	if reported.Sub(withCOGS).Abs().LessThanOrEqual(tolerance) ||
		reported.Sub(withoutCOGS).Abs().LessThanOrEqual(tolerance) {
		return
	}

	logger.Warn(ctx, "net income does not match reported totals",
		"reported", reported.String(),
		"computed", withCOGS.String(),
	)
}

// ValidateBalanceSheet checks the extracted list-shaped Balance Sheet and
// returns the dict-shaped record used for storage and querying.
func ValidateBalanceSheet(ctx context.Context, raw string) (*model.BalanceSheet, error) {
	var bs model.BalanceSheetRaw
	if err := decodeJSON(raw, &bs); err != nil {
		return nil, &model.ValidationError{Field: "", Reason: err.Error(), Raw: raw}
	}

	if bs.StatementType != model.TypeBalanceSheet {
		return nil, &model.ValidationError{
			Field:  "statement_type",
			Reason: fmt.Sprintf("expected %q, got %q", model.TypeBalanceSheet, bs.StatementType),
			Raw:    raw,
		}
	}
	if len(bs.TimePeriods) == 0 {
		return nil, &model.ValidationError{Field: "time_periods", Reason: "at least one time period is required", Raw: raw}
	}
	periods := make(map[string]bool, len(bs.TimePeriods))
	for i, p := range bs.TimePeriods {
		if p == "" {
			return nil, &model.ValidationError{
				Field:  fmt.Sprintf("time_periods[%d]", i),
				Reason: "period label must not be empty",
				Raw:    raw,
			}
		}
		periods[p] = true
	}
	if err := validateDate("as_of_date", bs.AsOfDate, raw); err != nil {
		return nil, err
	}

	sections := []struct {
		field string
		items []model.LineItem
	}{
		{"asset_items", bs.AssetItems},
		{"liability_items", bs.LiabilityItems},
		{"equity_items", bs.EquityItems},
	}
	for _, section := range sections {
		if err := validateItems(section.field, section.items, raw); err != nil {
			return nil, err
		}
		// Every item period must be one of the declared time periods
		for i, item := range section.items {
			if item.Period != nil && !periods[*item.Period] {
				return nil, &model.ValidationError{
					Field:  fmt.Sprintf("%s[%d].period", section.field, i),
					Reason: fmt.Sprintf("period %q is not one of the declared time_periods", *item.Period),
					Raw:    raw,
				}
			}
		}
	}

	totals := []struct {
		field  string
		values []*float64
	}{
		{"total_assets", bs.TotalAssets},
		{"total_liabilities", bs.TotalLiabilities},
		{"total_equity", bs.TotalEquity},
	}
	for _, total := range totals {
		if len(total.values) > len(bs.TimePeriods) {
			return nil, &model.ValidationError{
				Field:  total.field,
				Reason: fmt.Sprintf("%d totals for %d time periods", len(total.values), len(bs.TimePeriods)),
				Raw:    raw,
			}
		}
	}

	record := bs.ToBalanceSheet()
	checkBalanceConsistency(ctx, record)
	return record, nil
}

// checkBalanceConsistency warns when assets do not equal liabilities plus
// equity for some period.
func checkBalanceConsistency(ctx context.Context, bs *model.BalanceSheet) {
	for _, period := range bs.TimePeriods {
		assets, ok := totalFor(bs.TotalAssets, period)
		if !ok {
			continue
		}
		liabilities, ok := totalFor(bs.TotalLiabilities, period)
		if !ok {
			continue
		}
		equity, ok := totalFor(bs.TotalEquity, period)
		if !ok {
			continue
		}

		tolerance := decimal.NewFromFloat(0.01)
		if assets.Sub(liabilities.Add(equity)).Abs().GreaterThan(tolerance) {
			logger.Warn(ctx, "balance sheet does not balance",
				"period", period,
				"total_assets", assets.String(),
				"total_liabilities", liabilities.String(),
				"total_equity", equity.String(),
			)
		}
	}
}

func totalFor(series model.AccountSeries, period string) (decimal.Decimal, bool) {
	if series == nil {
		return decimal.Zero, false
	}
	v, ok := series[period]
	if !ok || v == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*v), true
}
