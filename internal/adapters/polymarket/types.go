package polymarket

import "encoding/json"

// DTOs raw de la Data API. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// dataTrade es un registro de GET /trades.
// Los campos numéricos llegan como número o como string según el endpoint,
// por eso se guardan raw y se parsean en mapping.go.
type dataTrade struct {
	ProxyWallet     string          `json:"proxyWallet"`
	Side            string          `json:"side"`
	Asset           string          `json:"asset"`
	ConditionID     string          `json:"conditionId"`
	Size            json.RawMessage `json:"size"`
	Price           json.RawMessage `json:"price"`
	UsdcSize        json.RawMessage `json:"usdcSize"`
	Timestamp       json.RawMessage `json:"timestamp"`
	RealizedPnl     json.RawMessage `json:"realizedPnl"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	EventSlug       string          `json:"eventSlug"`
	Outcome         string          `json:"outcome"`
	TransactionHash string          `json:"transactionHash"`
}

// tradeListKeys son las claves bajo las que un objeto envoltorio puede
// traer la lista de trades, en orden de preferencia.
var tradeListKeys = []string{"data", "trades"}
