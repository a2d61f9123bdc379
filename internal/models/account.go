package models

// AccountType enumerates the kinds of financial containers.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
)

var AccountTypes = []AccountType{AccountChecking, AccountSavings, AccountCredit, AccountInvestment, AccountCash}

// Account is a user-owned financial container with a balance.
// Its balance moves as transactions are booked against it.
type Account struct {
	Base `bson:",inline"`

	Name        string      `bson:"name" json:"name"`
	Type        AccountType `bson:"type" json:"type"`
	Balance     float64     `bson:"balance" json:"balance"`
	Currency    string      `bson:"currency" json:"currency"`
	Institution string      `bson:"institution,omitempty" json:"institution,omitempty"`
	IsActive    bool        `bson:"isActive" json:"isActive"`
}

func (a *Account) Validate() error {
	if err := required("name", a.Name); err != nil {
		return err
	}
	return oneOf("type", a.Type, AccountTypes)
}
