// model/book.go
package model

type CoverType string

const (
	CoverHard CoverType = "hard"
	CoverSoft CoverType = "soft"
)

type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Cover     CoverType `json:"cover"`
	Inventory int64     `json:"inventory"`
	DailyFee  float64   `json:"daily_fee"`
}
