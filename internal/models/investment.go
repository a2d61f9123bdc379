package models

import "time"

type InvestmentType string

const (
	InvestmentStocks       InvestmentType = "stocks"
	InvestmentMutualFunds  InvestmentType = "mutual_funds"
	InvestmentBonds        InvestmentType = "bonds"
	InvestmentCrypto       InvestmentType = "crypto"
	InvestmentRealEstate   InvestmentType = "real_estate"
	InvestmentFixedDeposit InvestmentType = "fixed_deposit"
	InvestmentOther        InvestmentType = "other"
)

var InvestmentTypes = []InvestmentType{
	InvestmentStocks,
	InvestmentMutualFunds,
	InvestmentBonds,
	InvestmentCrypto,
	InvestmentRealEstate,
	InvestmentFixedDeposit,
	InvestmentOther,
}

// Investment is a holding of some quantity bought at PurchasePrice.
type Investment struct {
	Base `bson:",inline"`

	Name          string         `bson:"name" json:"name"`
	Symbol        string         `bson:"symbol,omitempty" json:"symbol,omitempty"`
	Type          InvestmentType `bson:"type" json:"type"`
	Quantity      float64        `bson:"quantity" json:"quantity"`
	PurchasePrice float64        `bson:"purchasePrice" json:"purchasePrice"`
	CurrentPrice  float64        `bson:"currentPrice" json:"currentPrice"`
	PurchaseDate  time.Time      `bson:"purchaseDate" json:"purchaseDate"`
	Notes         string         `bson:"notes,omitempty" json:"notes,omitempty"`
}

func (i *Investment) Validate() error {
	if err := required("name", i.Name); err != nil {
		return err
	}
	if err := oneOf("type", i.Type, InvestmentTypes); err != nil {
		return err
	}
	if err := positive("quantity", i.Quantity); err != nil {
		return err
	}
	if err := nonNegative("purchasePrice", i.PurchasePrice); err != nil {
		return err
	}
	return nonNegative("currentPrice", i.CurrentPrice)
}
