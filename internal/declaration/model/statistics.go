package model

// StatusCounts breaks the declaration total down by processing status.
type StatusCounts struct {
	Cleared    int `json:"CLEARED"`
	Processing int `json:"PROCESSING"`
	Rejected   int `json:"REJECTED"`
}

// GroupStat is one accumulated bucket of a top-10 breakdown.
type GroupStat struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	TotalValue float64 `json:"totalValue"`
}

// Statistics is the aggregator output consumed by the statistics panel.
// Each top-10 slice is sorted descending by count and truncated to ten.
type Statistics struct {
	Total               int          `json:"total"`
	ByStatus            StatusCounts `json:"byStatus"`
	TotalCustomsValue   float64      `json:"totalCustomsValue"`
	TotalInvoiceValue   float64      `json:"totalInvoiceValue"`
	TotalItems          int          `json:"totalItems"`
	TopConsignors       []GroupStat  `json:"topConsignors"`
	TopConsignees       []GroupStat  `json:"topConsignees"`
	TopContractHolders  []GroupStat  `json:"topContractHolders"`
	TopHSCodes          []GroupStat  `json:"topHSCodes"`
	TopDeclarationTypes []GroupStat  `json:"topDeclarationTypes"`
	TopCustomsOffices   []GroupStat  `json:"topCustomsOffices"`
}
