package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// RecalcOutcome is the new summer average of one building, or why it has
// none.
type RecalcOutcome struct {
	BuildingID primitive.ObjectID
	Name       string
	Average    decimal.Decimal
	Err        error
}

// RecalcCirculation recomputes the stored summer average of every building
// of the organization (every building when orgID is zero). Buildings with
// an out-of-range apartment count are reported and skipped.
func (r *Runner) RecalcCirculation(ctx context.Context, orgID primitive.ObjectID) ([]RecalcOutcome, error) {
	filter := bson.M{}
	if !orgID.IsZero() {
		filter["organization_id"] = orgID
	}
	buildings, err := buildingstore.New(r.DB).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("load buildings: %w", err)
	}

	out := make([]RecalcOutcome, 0, len(buildings))
	for i := range buildings {
		b := &buildings[i]
		o := RecalcOutcome{BuildingID: b.ID, Name: b.Name}
		avg, err := r.Circulation.RecalculateSummerAverage(ctx, b)
		if err != nil {
			if !errors.Is(err, circulation.ErrInvalidBuilding) {
				return out, fmt.Errorf("recalculate %s: %w", b.ID.Hex(), err)
			}
			r.log().Warn("building skipped", zap.String("building_id", b.ID.Hex()), zap.Error(err))
			o.Err = err
			out = append(out, o)
			continue
		}
		r.Circulation.ClearBuilding(b.ID)
		o.Average = avg

		r.AuditLog.Billing(ctx, nil, nil, auditlog.Action{
			EventType:      audit.EventCirculationRecalc,
			OrganizationID: b.OrganizationID,
			TargetID:       b.ID,
			Details:        map[string]string{"average": avg.StringFixed(2), "source": "cli"},
		})
		out = append(out, o)
	}
	return out, nil
}
