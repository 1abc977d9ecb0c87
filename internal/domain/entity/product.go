package entity

import "time"

type ProductStatus string

const (
	ProductSelling  ProductStatus = "SELLING"
	ProductReserved ProductStatus = "RESERVED"
	ProductSold     ProductStatus = "SOLD"
)

// Product is a marketplace listing. The confirmation timestamps are written once per party
// and the listing becomes SOLD only when both are present.
type Product struct {
	ID       string        `json:"id" firestore:"id"`
	SellerID string        `json:"seller_id" firestore:"sellerId"`
	Title    string        `json:"title" firestore:"title"`
	Price    int64         `json:"price" firestore:"price"`
	Status   ProductStatus `json:"status" firestore:"status"`

	BuyerID           string     `json:"buyer_id,omitempty" firestore:"buyerId,omitempty"`
	SellerConfirmedAt *time.Time `json:"seller_confirmed_at,omitempty" firestore:"sellerConfirmedAt,omitempty"`
	BuyerConfirmedAt  *time.Time `json:"buyer_confirmed_at,omitempty" firestore:"buyerConfirmedAt,omitempty"`
	SoldAt            *time.Time `json:"sold_at,omitempty" firestore:"soldAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (p *Product) BothConfirmed() bool {
	return p.SellerConfirmedAt != nil && p.BuyerConfirmedAt != nil
}

// CompleteIfConfirmed flips the listing to SOLD once both parties confirmed. Returns true on the flip.
func (p *Product) CompleteIfConfirmed(now time.Time) bool {
	if !p.BothConfirmed() || p.Status == ProductSold {
		return false
	}
	p.Status = ProductSold
	p.SoldAt = &now
	p.UpdatedAt = now
	return true
}
