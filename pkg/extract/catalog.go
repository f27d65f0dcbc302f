package extract

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/config"
	"github.com/David-Botos/retail-ingress/pkg/model"
)

// TableResolver quotes source table names for the FROM clause
type TableResolver interface {
	Sqlx() *sqlx.DB
	QualifiedTable(name string) string
}

// NewCatalog wires every dataset to its configured source
func NewCatalog(cfg *config.ExtractConfig, db TableResolver, objects ObjectGetter, logger *zap.Logger) Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("extract")
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	return Catalog{
		model.DatasetUsers:    NewRDSTable(db.Sqlx(), cfg.UsersTable, db.QualifiedTable(cfg.UsersTable), logger),
		model.DatasetOrders:   NewRDSTable(db.Sqlx(), cfg.OrdersTable, db.QualifiedTable(cfg.OrdersTable), logger),
		model.DatasetCards:    NewCSVFile("card_details", cfg.CardDetailsPath, logger),
		model.DatasetStores:   NewStoreAPI(client, cfg.StoreAPIBaseURL, cfg.StoreAPIKey, logger),
		model.DatasetProducts: NewS3Object(objects, "products", cfg.ProductsBucket, cfg.ProductsKey, logger),
		model.DatasetDates:    NewDateDetails(client, cfg.DateDetailsURL, logger),
	}
}
