package models

import "time"

type AccountType string

const (
	AccountTypeBank    AccountType = "bank"
	AccountTypeEWallet AccountType = "e_wallet"
)

// BankAccount is where a vendor's settled commissions are paid. The primary
// account is the bank reference shown on unclaimed commission groups.
type BankAccount struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	VendorID      uint        `gorm:"index;not null" json:"vendor_id"`
	Type          AccountType `gorm:"size:20;not null" json:"type"`
	BankName      string      `gorm:"size:100;not null" json:"bank_name"`
	AccountName   string      `gorm:"size:150;not null" json:"account_name"`
	AccountNumber string      `gorm:"size:50;not null" json:"account_number"`
	IsPrimary     bool        `gorm:"not null;default:false" json:"is_primary"`
	IsActive      bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Reference renders the account as "<bank> <number> a.n. <holder>".
func (b BankAccount) Reference() string {
	return b.BankName + " " + b.AccountNumber + " a.n. " + b.AccountName
}
