package entity

import (
	"time"
)

type TransactionStatus string

const (
	TransactionOpen      TransactionStatus = "open"
	TransactionCompleted TransactionStatus = "completed"
)

type Transaction struct {
	ID         string            `json:"id" firestore:"id"`
	ProductID  string            `json:"product_id" firestore:"productId"`
	SellerID   string            `json:"seller_id" firestore:"sellerId"`
	BuyerID    string            `json:"buyer_id" firestore:"buyerId"`
	FinalPrice int64             `json:"final_price" firestore:"finalPrice"`
	Status     TransactionStatus `json:"status" firestore:"status"`

	SellerConfirmedAt *time.Time `json:"seller_confirmed_at,omitempty" firestore:"sellerConfirmedAt,omitempty"`
	BuyerConfirmedAt  *time.Time `json:"buyer_confirmed_at,omitempty" firestore:"buyerConfirmedAt,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" firestore:"completedAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (t *Transaction) IsOpen() bool {
	return t.Status == TransactionOpen
}
