// Package export turns declarations into tabular XLSX output at three
// fidelity levels: a basic per-declaration listing, an extended listing with
// caller-selected columns expanded per goods item, and the cross-declaration
// extended goods export with a dynamic payment-code column set.
package export

import "github.com/OpenCCD/archive/internal/declaration/derive"

// Tab selects which archive listing is being exported.
type Tab string

const (
	// TabList60 is the short-format listing (header fields only).
	TabList60 Tab = "list60"
	// TabList61 is the detailed listing with goods-level data.
	TabList61 Tab = "list61"
)

// Column keys. The exported column set is always an ordered list of these
// keys filtered by a caller-supplied inclusion set.
const (
	ColMDNumber          = "mdNumber"
	ColRegisteredDate    = "registeredDate"
	ColStatus            = "status"
	ColDeclarationType   = "declarationType"
	ColCustomsOffice     = "customsOffice"
	ColConsignor         = "consignor"
	ColConsignee         = "consignee"
	ColContractHolder    = "contractHolder"
	ColDeclarantName     = "declarantName"
	ColInvoiceValue      = "invoiceValue"
	ColInvoiceCurrency   = "invoiceCurrency"
	ColExchangeRate      = "exchangeRate"
	ColInvoiceValueUAH   = "invoiceValueUah"
	ColCustomsValue      = "customsValue"
	ColTotalItems        = "totalItems"
	ColTransport         = "transport"
	ColDeliveryTerms     = "deliveryTerms"
	ColDeliveryPlace     = "deliveryPlace"
	ColHSCode            = "hsCode"
	ColGoodsDescription  = "goodsDescription"
	ColGoodsPrice        = "goodsPrice"
	ColNetWeight         = "netWeight"
	ColGrossWeight       = "grossWeight"
	ColGoodsCustomsValue = "goodsCustomsValue"
	ColValueUSD          = "valueUsd"
	ColValueUSDPerKg     = "valueUsdPerKg"
	ColProducerName      = "producerName"
	ColAddUnitCode       = "addUnitCode"
	ColInvoiceNumber     = "invoiceNumber"
	ColInvoiceDate       = "invoiceDate"
	ColCMRNumber         = "cmrNumber"
	ColCMRDate           = "cmrDate"
	ColContractNumber    = "contractNumber"
	ColContractDate      = "contractDate"
	ColPayments          = "payments"

	// Diagnostic columns appended in debug mode.
	ColRateDateRaw  = "rateDateRaw"
	ColResolvedRate = "resolvedRate"
)

var columnLabels = map[string]string{
	ColMDNumber:          "Номер МД",
	ColRegisteredDate:    "Дата оформлення",
	ColStatus:            "Статус",
	ColDeclarationType:   "Тип декларації",
	ColCustomsOffice:     "Митниця",
	ColConsignor:         "Відправник",
	ColConsignee:         "Отримувач",
	ColContractHolder:    "Контрактоутримувач",
	ColDeclarantName:     "Декларант",
	ColInvoiceValue:      "Фактурна вартість",
	ColInvoiceCurrency:   "Валюта",
	ColExchangeRate:      "Курс валюти",
	ColInvoiceValueUAH:   "Фактурна вартість, грн",
	ColCustomsValue:      "Митна вартість, грн",
	ColTotalItems:        "Кількість товарів",
	ColTransport:         "Транспорт",
	ColDeliveryTerms:     "Умови поставки",
	ColDeliveryPlace:     "Місце поставки",
	ColHSCode:            "Код УКТЗЕД",
	ColGoodsDescription:  "Опис товару",
	ColGoodsPrice:        "Ціна товару",
	ColNetWeight:         "Вага нетто, кг",
	ColGrossWeight:       "Вага брутто, кг",
	ColGoodsCustomsValue: "Митна вартість товару",
	ColValueUSD:          "Вартість, USD",
	ColValueUSDPerKg:     "Вартість USD/кг",
	ColProducerName:      "Виробник",
	ColAddUnitCode:       "Додаткова одиниця",
	ColInvoiceNumber:     "Номер інвойсу",
	ColInvoiceDate:       "Дата інвойсу",
	ColCMRNumber:         "Номер CMR",
	ColCMRDate:           "Дата CMR",
	ColContractNumber:    "Номер контракту",
	ColContractDate:      "Дата контракту",
	ColPayments:          "Платежі",
	ColRateDateRaw:       "Дата курсу (діагностика)",
	ColResolvedRate:      "Курс USD (діагностика)",
}

// declarationLevelColumns are repeated only on the first goods row of a
// declaration in the extended export (spreadsheet merge convention).
var declarationLevelColumns = map[string]bool{
	ColMDNumber:        true,
	ColRegisteredDate:  true,
	ColStatus:          true,
	ColDeclarationType: true,
	ColCustomsOffice:   true,
	ColConsignor:       true,
	ColConsignee:       true,
	ColContractHolder:  true,
	ColDeclarantName:   true,
	ColInvoiceValue:    true,
	ColInvoiceCurrency: true,
	ColExchangeRate:    true,
	ColInvoiceValueUAH: true,
	ColCustomsValue:    true,
	ColTotalItems:      true,
	ColTransport:       true,
	ColDeliveryTerms:   true,
	ColDeliveryPlace:   true,
	ColPayments:        true,
}

// Label returns the header label for a column key. Unknown keys render the
// sentinel, matching how their values render.
func Label(key string) string {
	if l, ok := columnLabels[key]; ok {
		return l
	}
	return derive.NoData
}

// basicColumns60 is the fixed 7-column set of the short-format listing.
var basicColumns60 = []string{
	ColMDNumber, ColRegisteredDate, ColStatus, ColDeclarationType,
	ColCustomsOffice, ColTransport, ColConsignor,
}

// basicColumns61 is the fixed 13-column set of the detailed listing.
var basicColumns61 = []string{
	ColMDNumber, ColRegisteredDate, ColStatus, ColDeclarationType,
	ColCustomsOffice, ColConsignor, ColConsignee, ColContractHolder,
	ColInvoiceValue, ColInvoiceCurrency, ColCustomsValue, ColTotalItems,
	ColTransport,
}

// BasicColumns returns the fixed column set for the basic export of a tab.
func BasicColumns(tab Tab) []string {
	if tab == TabList61 {
		return append([]string(nil), basicColumns61...)
	}
	return append([]string(nil), basicColumns60...)
}

// DefaultExtendedColumns is the default ordered key list of the extended
// exports when the caller supplies no explicit order.
var DefaultExtendedColumns = []string{
	ColMDNumber, ColRegisteredDate, ColStatus, ColDeclarationType,
	ColCustomsOffice, ColConsignor, ColConsignee, ColContractHolder,
	ColDeclarantName, ColInvoiceValue, ColInvoiceCurrency, ColExchangeRate,
	ColInvoiceValueUAH, ColCustomsValue, ColTotalItems, ColDeliveryTerms,
	ColDeliveryPlace, ColTransport, ColHSCode, ColGoodsDescription,
	ColGoodsPrice, ColNetWeight, ColGrossWeight, ColGoodsCustomsValue,
	ColValueUSD, ColValueUSDPerKg, ColProducerName, ColAddUnitCode,
	ColInvoiceNumber, ColInvoiceDate, ColCMRNumber, ColCMRDate,
	ColContractNumber, ColContractDate, ColPayments,
}

// ResolveColumns filters an ordered key list through an inclusion set.
// Output order is exactly the filtered input order. A nil inclusion set
// keeps everything; a nil order falls back to the default extended set.
func ResolveColumns(order []string, include map[string]bool) []string {
	if len(order) == 0 {
		order = DefaultExtendedColumns
	}
	out := make([]string, 0, len(order))
	for _, key := range order {
		if include == nil || include[key] {
			out = append(out, key)
		}
	}
	return out
}
