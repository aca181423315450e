package book

type BookReq struct {
	Title     string  `json:"title" validate:"required"`
	Author    string  `json:"author" validate:"required"`
	Cover     string  `json:"cover" validate:"required,oneof=hard soft"`
	Inventory int64   `json:"inventory" validate:"gte=0"`
	DailyFee  float64 `json:"daily_fee" validate:"required,gt=0"`
}
