// pkg/model/dataset.go
package model

import (
	"fmt"
	"strings"
)

// DatasetKind identifies a logical dataset and therefore its cleaning rules
type DatasetKind string

const (
	DatasetUsers    DatasetKind = "users"
	DatasetCards    DatasetKind = "cards"
	DatasetStores   DatasetKind = "stores"
	DatasetProducts DatasetKind = "products"
	DatasetDates    DatasetKind = "dates"
	DatasetOrders   DatasetKind = "orders"
)

// AllDatasets lists every dataset kind in load order
var AllDatasets = []DatasetKind{
	DatasetProducts,
	DatasetStores,
	DatasetDates,
	DatasetCards,
	DatasetUsers,
	DatasetOrders,
}

var destinations = map[DatasetKind]string{
	DatasetUsers:    "dim_users",
	DatasetCards:    "dim_card_details",
	DatasetStores:   "dim_store_details",
	DatasetProducts: "dim_products",
	DatasetDates:    "dim_date_times",
	DatasetOrders:   "orders_table",
}

// Destination returns the table the load layer replaces or creates
func (k DatasetKind) Destination() string {
	return destinations[k]
}

// Valid reports whether k is a known dataset kind
func (k DatasetKind) Valid() bool {
	_, ok := destinations[k]
	return ok
}

// ParseDatasetKind parses a dataset name (case-insensitive)
func ParseDatasetKind(s string) (DatasetKind, error) {
	k := DatasetKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown dataset kind %q", s)
	}
	return k, nil
}
