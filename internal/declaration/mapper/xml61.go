package mapper

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/OpenCCD/archive/internal/declaration/derive"
	"github.com/OpenCCD/archive/internal/declaration/model"
)

// XML61 is the built-in mapper for the full 61.1 ccd XML document. Customs
// gateways still emit windows-1251 documents, so the decoder carries a
// charset reader for the legacy encodings.
type XML61 struct{}

// doc61 mirrors the 61.1 document. Nested blocks use short block-scoped tag
// prefixes (gds_, pay_, doc_, cl_, trn_, prt_) the way the gateway emits them.
type doc61 struct {
	MRN             string `xml:"ccd_mrn"`
	Registered      string `xml:"ccd_registered"`
	Type            string `xml:"ccd_type"`
	CustomsOffice   string `xml:"ccd_customs"`
	Consignor       string `xml:"ccd_02_name"`
	Consignee       string `xml:"ccd_08_name"`
	ContractHolder  string `xml:"ccd_09_name"`
	Declarant       string `xml:"ccd_14_name"`
	InvoiceValue    string `xml:"ccd_facturing_cost"`
	InvoiceCurrency string `xml:"ccd_facturing_currency"`
	CustomsValue    string `xml:"ccd_customs_cost"`
	ExchangeRate    string `xml:"ccd_cur_rate"`
	CurRateDate     string `xml:"ccd_cur_date"`
	DeliveryTerms   string `xml:"ccd_20_terms"`
	DeliveryPlace   string `xml:"ccd_20_place"`
	DeliveryCountry string `xml:"ccd_20_country"`

	Goods      []goods61     `xml:"ccd_goods"`
	Clients    []client61    `xml:"ccd_client"`
	Transports []transport61 `xml:"ccd_transport"`
	Documents  []document61  `xml:"ccd_doc"`
	Payments   []payment61   `xml:"ccd_payment"`
	Protocol   []protocol61  `xml:"ccd_proto"`
}

type goods61 struct {
	Index       string       `xml:"gds_number"`
	HSCode      string       `xml:"gds_code"`
	Description string       `xml:"gds_name"`
	Price       string       `xml:"gds_price"`
	NetWeight   string       `xml:"gds_net_weight"`
	GrossWeight string       `xml:"gds_gross_weight"`
	Cost        string       `xml:"gds_cost"`
	Producer    string       `xml:"gds_producer"`
	AddUnit     string       `xml:"gds_add_unit"`
	Payments    []payment61  `xml:"pay"`
	Docs        []document61 `xml:"doc"`
}

type client61 struct {
	Role    string `xml:"cl_role"`
	Name    string `xml:"cl_name"`
	Address string `xml:"cl_address"`
	Code    string `xml:"cl_code"`
}

type transport61 struct {
	Name   string `xml:"trn_name"`
	Number string `xml:"trn_number"`
}

type document61 struct {
	Code   string `xml:"doc_code"`
	Type   string `xml:"doc_type"`
	Number string `xml:"doc_number"`
	Date   string `xml:"doc_date"`
}

type payment61 struct {
	Code   string `xml:"pay_code"`
	Char   string `xml:"pay_char"`
	Amount string `xml:"pay_sum"`
}

type protocol61 struct {
	Date    string `xml:"prt_date"`
	Message string `xml:"prt_message"`
}

func (XML61) Map(xmlData string) (*model.MappedDeclaration, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlData))
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var doc doc61
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode 61.1 document: %w", err)
	}

	mapped := &model.MappedDeclaration{
		Header: model.Header{
			MRN:                 strings.TrimSpace(doc.MRN),
			Consignor:           text(doc.Consignor),
			Consignee:           text(doc.Consignee),
			ContractHolder:      text(doc.ContractHolder),
			DeclarantName:       text(doc.Declarant),
			CustomsOffice:       text(doc.CustomsOffice),
			DeclarationType:     strings.TrimSpace(doc.Type),
			InvoiceValue:        number(doc.InvoiceValue),
			InvoiceCurrency:     strings.TrimSpace(doc.InvoiceCurrency),
			CustomsValue:        number(doc.CustomsValue),
			ExchangeRate:        number(doc.ExchangeRate),
			CurrencyRateDateRaw: strings.TrimSpace(doc.CurRateDate),
			RegisteredDateRaw:   strings.TrimSpace(doc.Registered),
			DeliveryTerms:       text(doc.DeliveryTerms),
			DeliveryPlace:       text(doc.DeliveryPlace),
			DeliveryCountryCode: strings.TrimSpace(doc.DeliveryCountry),
		},
		GeneralPayments: payments(doc.Payments),
	}

	for i, g := range doc.Goods {
		index, err := strconv.Atoi(strings.TrimSpace(g.Index))
		if err != nil || index <= 0 {
			index = i + 1
		}
		mapped.Goods = append(mapped.Goods, model.Goods{
			Index:        index,
			HSCode:       strings.TrimSpace(g.HSCode),
			Description:  text(g.Description),
			Price:        number(g.Price),
			NetWeight:    number(g.NetWeight),
			GrossWeight:  number(g.GrossWeight),
			CustomsValue: number(g.Cost),
			ProducerName: text(g.Producer),
			AddUnitCode:  strings.TrimSpace(g.AddUnit),
			Payments:     payments(g.Payments),
			Docs:         documents(g.Docs),
		})
	}
	mapped.Header.TotalItems = len(mapped.Goods)

	for _, c := range doc.Clients {
		mapped.Clients = append(mapped.Clients, model.Client{
			Role:    strings.TrimSpace(c.Role),
			Name:    text(c.Name),
			Address: text(c.Address),
			Code:    strings.TrimSpace(c.Code),
		})
	}
	for _, t := range doc.Transports {
		mapped.Transports = append(mapped.Transports, model.Transport{
			Name:   text(t.Name),
			Number: strings.TrimSpace(t.Number),
		})
	}
	mapped.Documents = documents(doc.Documents)
	for _, p := range doc.Protocol {
		mapped.Protocol = append(mapped.Protocol, model.ProtocolEntry{
			Date:    strings.TrimSpace(p.Date),
			Message: text(p.Message),
		})
	}

	return mapped, nil
}

func payments(src []payment61) []model.Payment {
	var out []model.Payment
	for _, p := range src {
		out = append(out, model.Payment{
			Code:   strings.TrimSpace(p.Code),
			Char:   strings.TrimSpace(p.Char),
			Amount: number(p.Amount),
		})
	}
	return out
}

func documents(src []document61) []model.Document {
	var out []model.Document
	for _, d := range src {
		out = append(out, model.Document{
			Code:   strings.TrimSpace(d.Code),
			Type:   strings.TrimSpace(d.Type),
			Number: strings.TrimSpace(d.Number),
			Date:   strings.TrimSpace(d.Date),
		})
	}
	return out
}

// text trims a free-text field and repairs legacy mojibake.
func text(s string) string {
	return derive.DecodeLegacyText(strings.TrimSpace(s))
}

// number parses a decimal that may use a comma separator. Unparseable input
// degrades to 0.
func number(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return input, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "koi8-r":
		return charmap.KOI8R.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset: %s", charset)
	}
}
