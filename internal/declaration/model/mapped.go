package model

// MappedDeclaration is the output shape of the external XML-to-declaration
// mapper. The mapper itself is a black box; this package only carries its
// result as data. When no 61.1 XML is available a minimal instance is built
// from the Summary row instead (Goods left empty).
type MappedDeclaration struct {
	Header          Header          `json:"header"`
	Goods           []Goods         `json:"goods"`
	Clients         []Client        `json:"clients"`
	Transports      []Transport     `json:"transports"`
	Documents       []Document      `json:"documents"`
	GeneralPayments []Payment       `json:"generalPayments"`
	Protocol        []ProtocolEntry `json:"protocol"`
}

// Header carries the declaration-level fields of a mapped declaration.
type Header struct {
	MRN                 string  `json:"mrn"`
	Consignor           string  `json:"consignor"`
	Consignee           string  `json:"consignee"`
	ContractHolder      string  `json:"contractHolder"`
	DeclarantName       string  `json:"declarantName"`
	CustomsOffice       string  `json:"customsOffice"`
	DeclarationType     string  `json:"declarationType"`
	InvoiceValue        float64 `json:"invoiceValue"`
	InvoiceCurrency     string  `json:"invoiceCurrency"`
	CustomsValue        float64 `json:"customsValue"`
	ExchangeRate        float64 `json:"exchangeRate"`
	CurrencyRateDateRaw string  `json:"currencyRateDateRaw"`
	RegisteredDateRaw   string  `json:"registeredDateRaw"`
	DeliveryTerms       string  `json:"deliveryTerms"`
	DeliveryPlace       string  `json:"deliveryPlace"`
	DeliveryCountryCode string  `json:"deliveryCountryCode"`
	TotalItems          int     `json:"totalItems"`
}

// Goods is a single goods line item of a 61.1 declaration.
type Goods struct {
	Index        int        `json:"index"`
	HSCode       string     `json:"hsCode"`
	Description  string     `json:"description"`
	Price        float64    `json:"price"`
	NetWeight    float64    `json:"netWeight"`
	GrossWeight  float64    `json:"grossWeight"`
	CustomsValue float64    `json:"customsValue"`
	ProducerName string     `json:"producerName"`
	AddUnitCode  string     `json:"addUnitCode"`
	Payments     []Payment  `json:"payments"`
	Docs         []Document `json:"docs"`
}

// Client is a party referenced by the declaration (consignor, consignee...).
type Client struct {
	Role    string `json:"role"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Code    string `json:"code"`
}

// Transport describes one transport unit of the declaration.
type Transport struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Document is an accompanying document. Goods-level documents carry a numeric
// Code (380 invoice, 730 CMR, 4100/4104 contract); declaration-level documents
// are matched by Type instead.
type Document struct {
	Code   string `json:"code"`
	Type   string `json:"type"`
	Number string `json:"number"`
	Date   string `json:"date"`
}

// Payment is a single customs payment line.
type Payment struct {
	Code   string  `json:"code"`
	Char   string  `json:"char"`
	Amount float64 `json:"amount"`
}

// ProtocolEntry is one entry of the customs processing protocol.
type ProtocolEntry struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}
