package models

type Restaurant struct {
	ID           string     `json:"id" firestore:"id"`
	Name         string     `json:"name" firestore:"name"`
	Phone        string     `json:"phone" firestore:"phone"`
	Address      string     `json:"address" firestore:"address"`
	Jurisdiction string     `json:"jurisdiction" firestore:"jurisdiction"`
	Languages    []Language `json:"languages" firestore:"languages"`
}

// MenuUpdate is the body of a menu replacement.
type MenuUpdate struct {
	Items []MenuIndexEntry `json:"items" binding:"required,dive"`
}

type MenuSyncResult struct {
	RestaurantID string `json:"restaurant_id"`
	Items        int    `json:"items"`
}
