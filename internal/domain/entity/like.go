package entity

import (
	"fmt"
	"time"
)

type Like struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"userId"`
	ProductID string    `json:"product_id" firestore:"productId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

func LikeID(userID, productID string) string {
	return fmt.Sprintf("%s_%s", userID, productID)
}

type LikeStatus struct {
	ProductID string `json:"product_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}
