package models

import (
	"slices"
	"time"
)

// TransactionType is either income or expense.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

var TransactionTypes = []TransactionType{Income, Expense}

// ExpenseCategories are the categories accepted for expenses.
var ExpenseCategories = []string{
	"Food",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Healthcare",
	"Education",
	"Travel",
	"Housing",
	"Personal Care",
	"Other",
}

// IncomeCategories are the categories accepted for income.
var IncomeCategories = []string{
	"Salary",
	"Freelance",
	"Business",
	"Investment",
	"Gift",
	"Refund",
	"Other",
}

// Transaction is a single income or expense booked against an account.
type Transaction struct {
	Base `bson:",inline"`

	AccountID     string          `bson:"accountId" json:"accountId"`
	Type          TransactionType `bson:"type" json:"type"`
	Amount        float64         `bson:"amount" json:"amount"`
	Category      string          `bson:"category" json:"category"`
	Description   string          `bson:"description,omitempty" json:"description,omitempty"`
	Date          time.Time       `bson:"date" json:"date"`
	PaymentMethod string          `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Tags          []string        `bson:"tags,omitempty" json:"tags,omitempty"`
}

// Signed returns the amount with the sign it applies to the account balance.
func (t *Transaction) Signed() float64 {
	if t.Type == Expense {
		return -t.Amount
	}
	return t.Amount
}

func (t *Transaction) Validate() error {
	if err := required("accountId", t.AccountID); err != nil {
		return err
	}
	if err := oneOf("type", t.Type, TransactionTypes); err != nil {
		return err
	}
	if err := nonNegative("amount", t.Amount); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return invalid("date", "is required")
	}
	categories := ExpenseCategories
	if t.Type == Income {
		categories = IncomeCategories
	}
	if !slices.Contains(categories, t.Category) {
		return invalid("category", "%q is not a valid %s category", t.Category, t.Type)
	}
	return nil
}
