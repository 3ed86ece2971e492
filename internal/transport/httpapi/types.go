package httpapi

type EstimateEntry struct {
	Exchange string  `json:"exchange"`
	Price    float64 `json:"price,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type EstimatesResponse struct {
	Symbol      string          `json:"symbol"`
	Action      string          `json:"action"`
	Size        float64         `json:"size"`
	Estimates   []EstimateEntry `json:"estimates"`
	GeneratedAt string          `json:"generatedAt"`
}

type BestResponse struct {
	Symbol      string  `json:"symbol"`
	Action      string  `json:"action"`
	Size        float64 `json:"size"`
	Exchange    string  `json:"exchange"`
	Price       float64 `json:"price"`
	GeneratedAt string  `json:"generatedAt"`
}

type ExecuteRequest struct {
	Symbol string  `json:"symbol"`
	Size   float64 `json:"size"`
	Action string  `json:"action"` // buy | sell, по умолчанию buy
}

type FillEntry struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

type OrderResponse struct {
	ID           string      `json:"id"`
	Exchange     string      `json:"exchange"`
	Symbol       string      `json:"symbol"`
	Action       string      `json:"action"`
	Status       string      `json:"status"`
	Quantity     float64     `json:"quantity"`
	Filled       float64     `json:"filled"`
	AveragePrice float64     `json:"averagePrice"`
	Fills        []FillEntry `json:"fills"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
