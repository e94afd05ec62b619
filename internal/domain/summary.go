package domain

import "github.com/shopspring/decimal"

// Summary holds the three running totals derived from the transaction list.
type Summary struct {
	Ingresos decimal.Decimal `json:"ingresos"`
	Egresos  decimal.Decimal `json:"egresos"`
	Ahorros  decimal.Decimal `json:"ahorros"`
}

// TotalBalance is ingresos − egresos − ahorros.
func (s Summary) TotalBalance() decimal.Decimal {
	return s.Ingresos.Sub(s.Egresos).Sub(s.Ahorros)
}

// Summarize computes the summary totals in one pass over the transaction
// list. Pure; no I/O.
func Summarize(transactions []Transaction) Summary {
	s := Summary{
		Ingresos: decimal.Zero,
		Egresos:  decimal.Zero,
		Ahorros:  decimal.Zero,
	}
	for _, t := range transactions {
		switch t.Type {
		case TransactionTypeIngreso:
			s.Ingresos = s.Ingresos.Add(t.Amount)
		case TransactionTypeGasto:
			s.Egresos = s.Egresos.Add(t.Amount)
		case TransactionTypeAhorro:
			s.Ahorros = s.Ahorros.Add(t.Amount)
		}
	}
	return s
}

// CategoryTotals sums amounts per category for transactions of the given
// type. Used by the reports surface.
func CategoryTotals(transactions []Transaction, txType TransactionType) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range transactions {
		if t.Type != txType {
			continue
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount)
	}
	return totals
}

// CardUsage describes how much of a card's limit is consumed by expense
// transactions referencing it.
type CardUsage struct {
	Card      Card            `json:"card"`
	Spent     decimal.Decimal `json:"spent"`
	Available decimal.Decimal `json:"available"`
}

// UsageForCard sums the expenses charged to a card. Transactions referencing
// cards that no longer exist simply contribute to no card; they never break
// aggregation.
func UsageForCard(transactions []Transaction, card Card) CardUsage {
	spent := decimal.Zero
	for _, t := range transactions {
		if t.Type != TransactionTypeGasto || t.CardID == nil {
			continue
		}
		if *t.CardID == card.ID {
			spent = spent.Add(t.Amount)
		}
	}
	return CardUsage{Card: card, Spent: spent, Available: card.Limit.Sub(spent)}
}
