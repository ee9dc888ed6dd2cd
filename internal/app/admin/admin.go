// Package admin implements the operator commands run by rentcounter-admin:
// loading fixtures, batch invoice generation, circulation recalculation and
// report exports. Each command works directly against the database and
// never goes through HTTP.
package admin

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/bootstrap"
	reportsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/reports"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultWorkers bounds concurrent invoice generations.
const DefaultWorkers = 4

// Runner holds what the commands need.
type Runner struct {
	DB          *mongo.Database
	Billing     *billing.Service
	Circulation *circulation.Calculator
	Reports     *reportsfeature.Handler
	AuditLog    *auditlog.Logger
	Locale      string
	Workers     int
	Log         *zap.Logger
}

// New wires a Runner with the same services the web server uses.
func New(appCfg bootstrap.AppConfig, deps bootstrap.DBDeps, logger *zap.Logger) *Runner {
	svc := bootstrap.NewServices(appCfg, deps, logger)
	return &Runner{
		DB:          deps.MongoDatabase,
		Billing:     svc.Billing,
		Circulation: svc.Circulation,
		Reports:     reportsfeature.NewHandler(deps.MongoDatabase, nil, deps.Exports, nil, svc.AuditLog, logger),
		AuditLog:    svc.AuditLog,
		Locale:      appCfg.DefaultLocale,
		Workers:     DefaultWorkers,
		Log:         logger,
	}
}

func (r *Runner) workers() int {
	if r.Workers <= 0 {
		return DefaultWorkers
	}
	return r.Workers
}

func (r *Runner) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}
