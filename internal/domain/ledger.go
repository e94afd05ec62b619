package domain

import "github.com/shopspring/decimal"

// Profile holds the user's contact details. Singleton per user; reset
// restores defaults, it is never deleted.
type Profile struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	CountryCode string `json:"countryCode"`
}

// Categories is the pair of category name lists. Insertion order is
// preserved for display but carries no meaning.
type Categories struct {
	Ingreso []string `json:"ingreso"`
	Gasto   []string `json:"gasto"`
}

// Card is a credit card with a locally-assigned small-integer identifier,
// unique within the user's card list. Deleting a card does not cascade to
// transactions; orphaned references are tolerated.
type Card struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Limit decimal.Decimal `json:"limit"`
}

// WishlistItem is a savings goal.
type WishlistItem struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Acquisition is a realized purchase from the savings flow. Its numeric,
// locally-assigned identifier is a deliberate asymmetry with Transaction:
// acquisitions are deleted by id match against the in-memory list, never
// through a per-record remote call.
type Acquisition struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Date  string          `json:"date,omitempty"`
}

// PaidMonths maps a card payment period key (see util.PeriodKey) to a paid
// flag. Entries have no lifecycle beyond being set or unset.
type PaidMonths map[string]bool

// Ledger is the complete in-memory financial state of one user. While a
// session is active it is a cache of the remote store, never the source of
// truth.
type Ledger struct {
	UserData     Profile        `json:"userData"`
	Categories   Categories     `json:"categories"`
	Cards        []Card         `json:"cards"`
	Transactions []Transaction  `json:"-"`
	Wishlist     []WishlistItem `json:"wishlist"`
	Acquisitions []Acquisition  `json:"acquisitions"`
	PaidMonths   PaidMonths     `json:"paidMonths"`
}

// DefaultCategories returns the seeded category lists.
func DefaultCategories() Categories {
	return Categories{
		Ingreso: []string{"Salario", "Ventas", "Freelance"},
		Gasto:   []string{"Alimentación", "Transporte", "Servicios", "Ocio", "Salud", "Educación", "Pago Tarjeta"},
	}
}

// DefaultCards returns the seeded card list.
func DefaultCards() []Card {
	return []Card{
		{ID: 1, Name: "Visa Principal", Limit: decimal.NewFromInt(1000000)},
		{ID: 2, Name: "Mastercard", Limit: decimal.NewFromInt(500000)},
	}
}

// DefaultProfile returns the default profile, carrying over whatever name
// and email are already known for the user.
func DefaultProfile(name, email string) Profile {
	if name == "" {
		name = "Usuario"
	}
	return Profile{Name: name, Email: email, CountryCode: "+56"}
}

// DefaultLedger returns a ledger populated with seeded defaults.
func DefaultLedger(name, email string) Ledger {
	return Ledger{
		UserData:     DefaultProfile(name, email),
		Categories:   DefaultCategories(),
		Cards:        DefaultCards(),
		Transactions: []Transaction{},
		Wishlist:     []WishlistItem{},
		Acquisitions: []Acquisition{},
		PaidMonths:   PaidMonths{},
	}
}
