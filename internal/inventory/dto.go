package inventory

type StockLookupRequest struct {
	DishIDs []string `json:"dishIds"`
}

type StockLookupResponse struct {
	Items    []StockLevelDTO `json:"items"`
	NotFound []string        `json:"notFound"`
}

type StockLevelDTO struct {
	DishID         string `json:"dishId"`
	Stock          int    `json:"stock"`
	ReservedStock  int    `json:"reservedStock"`
	AvailableStock int    `json:"availableStock"`
	IsActive       bool   `json:"isActive"`
}
