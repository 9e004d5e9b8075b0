package polymarket

import "encoding/json"

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete;
// la conversión a domain entities se hace en cada fetcher.

// --- Data API ---

// rawDataTrade es un trade del endpoint GET /trades de la Data API.
type rawDataTrade struct {
	ProxyWallet     string      `json:"proxyWallet"`
	ConditionID     string      `json:"conditionId"`
	Asset           string      `json:"asset"`
	Side            string      `json:"side"`
	Outcome         string      `json:"outcome"`
	Title           string      `json:"title"`
	Price           json.Number `json:"price"`
	Size            json.Number `json:"size"`
	Timestamp       json.Number `json:"timestamp"`
	TransactionHash string      `json:"transactionHash"`
}

// rawUserValue es un item de GET /value: valor de cash de un wallet.
type rawUserValue struct {
	User  string      `json:"user"`
	Value json.Number `json:"value"`
}

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket contiene la metadata de resolución de un mercado.
// Gamma devuelve outcomes y outcomePrices como arrays JSON serializados
// dentro de strings; se decodifican en parseJSONStringArray.
type gammaMarket struct {
	ConditionID   string `json:"conditionId"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	EndDateISO    string `json:"endDateIso"`
	ClosedTime    string `json:"closedTime"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
}
