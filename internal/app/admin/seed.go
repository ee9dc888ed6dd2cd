package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	orgstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	providerstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/providers"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	subscriptionstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/subscriptions"
	tariffstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tariffs"
	tenantstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tenants"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Fixtures is the seed file layout.
type Fixtures struct {
	Organizations []OrgFixture `yaml:"organizations" validate:"dive"`
}

// OrgFixture is one organization with everything it owns.
type OrgFixture struct {
	Name       string            `yaml:"name" validate:"required"`
	Email      string            `yaml:"email" validate:"required,email"`
	Plan       string            `yaml:"plan" validate:"omitempty,oneof=basic professional enterprise"`
	Users      []UserFixture     `yaml:"users" validate:"dive"`
	Providers  []ProviderFixture `yaml:"providers" validate:"dive"`
	Buildings  []BuildingFixture `yaml:"buildings" validate:"dive"`
	Properties []PropertyFixture `yaml:"properties" validate:"dive"`
}

// UserFixture is an admin or manager account of the organization.
type UserFixture struct {
	Name     string `yaml:"name" validate:"required"`
	Email    string `yaml:"email" validate:"required,email"`
	Password string `yaml:"password" validate:"required,min=8"`
	Role     string `yaml:"role" validate:"required,oneof=admin manager"`
	Locale   string `yaml:"locale" validate:"omitempty,oneof=en lt ru"`
}

type ProviderFixture struct {
	Name    string          `yaml:"name" validate:"required"`
	Service string          `yaml:"service" validate:"required,oneof=electricity water heating"`
	Tariffs []TariffFixture `yaml:"tariffs" validate:"dive"`
}

type TariffFixture struct {
	Name          string                     `yaml:"name" validate:"required"`
	ActiveFrom    string                     `yaml:"active_from" validate:"required,datetime=2006-01-02"`
	ActiveUntil   string                     `yaml:"active_until" validate:"omitempty,datetime=2006-01-02"`
	Configuration models.TariffConfiguration `yaml:"configuration"`
}

type BuildingFixture struct {
	Name       string            `yaml:"name" validate:"required"`
	Address    string            `yaml:"address" validate:"required"`
	Apartments int               `yaml:"apartments" validate:"min=1,max=1000"`
	Properties []PropertyFixture `yaml:"properties" validate:"dive"`
}

type PropertyFixture struct {
	Address string          `yaml:"address" validate:"required"`
	Unit    string          `yaml:"unit"`
	Type    string          `yaml:"type" validate:"omitempty,oneof=apartment house"`
	Area    decimal.Decimal `yaml:"area"`
	Tenant  *TenantFixture  `yaml:"tenant"`
	Meters  []MeterFixture  `yaml:"meters" validate:"dive"`
}

type TenantFixture struct {
	Name       string `yaml:"name" validate:"required"`
	Email      string `yaml:"email" validate:"required,email"`
	LeaseStart string `yaml:"lease_start" validate:"required,datetime=2006-01-02"`
}

type MeterFixture struct {
	Serial    string           `yaml:"serial" validate:"required"`
	Type      string           `yaml:"type" validate:"required,oneof=electricity water_cold water_hot heating"`
	Zones     bool             `yaml:"zones"`
	Installed string           `yaml:"installed" validate:"omitempty,datetime=2006-01-02"`
	Readings  []ReadingFixture `yaml:"readings" validate:"dive"`
}

type ReadingFixture struct {
	Date  string          `yaml:"date" validate:"required,datetime=2006-01-02"`
	Value decimal.Decimal `yaml:"value"`
	Zone  string          `yaml:"zone"`
}

// SeedResult counts what Seed inserted.
type SeedResult struct {
	Organizations int
	Skipped       int
	Users         int
	Buildings     int
	Properties    int
	Tenants       int
	Providers     int
	Tariffs       int
	Meters        int
	Readings      int
}

// LoadFixtures decodes and validates a seed file.
func LoadFixtures(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixtures{}, nil
		}
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(fx); err != nil {
		return Fixtures{}, fmt.Errorf("invalid fixtures: %w", err)
	}
	return fx, nil
}

// Seed inserts fixtures. Organizations whose slug already exists are
// skipped whole, so running the same file twice is harmless.
func (r *Runner) Seed(ctx context.Context, fx Fixtures) (SeedResult, error) {
	var res SeedResult
	orgs := orgstore.New(r.DB)
	for _, of := range fx.Organizations {
		n, err := orgs.Count(ctx, bson.M{"slug": orgstore.Slug(of.Name)})
		if err != nil {
			return res, fmt.Errorf("check organization %q: %w", of.Name, err)
		}
		if n > 0 {
			r.log().Info("organization exists, skipping", zap.String("name", of.Name))
			res.Skipped++
			continue
		}
		if err := r.seedOrg(ctx, of, &res); err != nil {
			return res, fmt.Errorf("seed organization %q: %w", of.Name, err)
		}
		res.Organizations++
	}
	return res, nil
}

func (r *Runner) seedOrg(ctx context.Context, of OrgFixture, res *SeedResult) error {
	plan := of.Plan
	if plan == "" {
		plan = models.PlanBasic
	}
	limits := models.PlanLimits[plan]
	org, err := orgstore.New(r.DB).Create(ctx, models.Organization{
		Name:          of.Name,
		Email:         of.Email,
		Plan:          plan,
		MaxProperties: limits.Properties,
		MaxUsers:      limits.Tenants,
	})
	if err != nil {
		return err
	}
	if _, err := subscriptionstore.New(r.DB).Create(ctx, models.Subscription{OrganizationID: org.ID, PlanType: plan}); err != nil {
		return fmt.Errorf("subscription: %w", err)
	}

	users := userstore.New(r.DB)
	for _, uf := range of.Users {
		hash, err := auth.HashPassword(uf.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", uf.Email, err)
		}
		orgID := org.ID
		if _, err := users.Create(ctx, models.User{
			OrganizationID: &orgID,
			FullName:       uf.Name,
			Email:          uf.Email,
			PasswordHash:   hash,
			Role:           uf.Role,
			Locale:         uf.Locale,
		}); err != nil {
			return fmt.Errorf("user %s: %w", uf.Email, err)
		}
		res.Users++
	}

	for _, pf := range of.Providers {
		if err := r.seedProvider(ctx, org.ID, pf, res); err != nil {
			return err
		}
	}

	for _, bf := range of.Buildings {
		b, err := buildingstore.New(r.DB).Create(ctx, models.Building{
			OrganizationID:  org.ID,
			Name:            bf.Name,
			Address:         bf.Address,
			TotalApartments: bf.Apartments,
		})
		if err != nil {
			return fmt.Errorf("building %q: %w", bf.Name, err)
		}
		res.Buildings++
		bid := b.ID
		for _, pf := range bf.Properties {
			if err := r.seedProperty(ctx, org.ID, &bid, pf, res); err != nil {
				return err
			}
		}
	}
	for _, pf := range of.Properties {
		if err := r.seedProperty(ctx, org.ID, nil, pf, res); err != nil {
			return err
		}
	}

	r.log().Info("organization seeded", zap.String("org_id", org.ID.Hex()), zap.String("name", org.Name))
	return nil
}

func (r *Runner) seedProvider(ctx context.Context, orgID primitive.ObjectID, pf ProviderFixture, res *SeedResult) error {
	p, err := providerstore.New(r.DB).Create(ctx, models.Provider{
		OrganizationID: orgID,
		Name:           pf.Name,
		ServiceType:    pf.Service,
	})
	if err != nil {
		return fmt.Errorf("provider %q: %w", pf.Name, err)
	}
	res.Providers++

	tariffs := tariffstore.New(r.DB)
	for _, tf := range pf.Tariffs {
		from, _ := time.Parse(dateLayout, tf.ActiveFrom)
		var until *time.Time
		if tf.ActiveUntil != "" {
			u, _ := time.Parse(dateLayout, tf.ActiveUntil)
			until = &u
		}
		cfg := tf.Configuration
		if cfg.Type == "" {
			cfg.Type = models.TariffFlat
		}
		pid := p.ID
		if _, err := tariffs.Create(ctx, models.Tariff{
			OrganizationID: orgID,
			ProviderID:     &pid,
			Name:           tf.Name,
			Configuration:  cfg,
			ActiveFrom:     from,
			ActiveUntil:    until,
		}); err != nil {
			return fmt.Errorf("tariff %q: %w", tf.Name, err)
		}
		res.Tariffs++
	}
	return nil
}

func (r *Runner) seedProperty(ctx context.Context, orgID primitive.ObjectID, buildingID *primitive.ObjectID, pf PropertyFixture, res *SeedResult) error {
	p, err := propertystore.New(r.DB).Create(ctx, models.Property{
		OrganizationID: orgID,
		BuildingID:     buildingID,
		Address:        pf.Address,
		UnitNumber:     pf.Unit,
		Type:           pf.Type,
		AreaSqm:        pf.Area,
	})
	if err != nil {
		return fmt.Errorf("property %q: %w", pf.Address, err)
	}
	res.Properties++

	if tf := pf.Tenant; tf != nil {
		lease, _ := time.Parse(dateLayout, tf.LeaseStart)
		if _, err := tenantstore.New(r.DB).Create(ctx, models.Tenant{
			OrganizationID: orgID,
			PropertyID:     p.ID,
			Name:           tf.Name,
			Email:          tf.Email,
			LeaseStart:     lease,
			Active:         true,
		}); err != nil {
			return fmt.Errorf("tenant %q: %w", tf.Name, err)
		}
		res.Tenants++
	}

	meters := meterstore.New(r.DB)
	readings := readingstore.New(r.DB)
	for _, mf := range pf.Meters {
		installed := time.Now().UTC()
		if mf.Installed != "" {
			installed, _ = time.Parse(dateLayout, mf.Installed)
		}
		m, err := meters.Create(ctx, models.Meter{
			OrganizationID:   orgID,
			PropertyID:       p.ID,
			SerialNumber:     mf.Serial,
			Type:             mf.Type,
			SupportsZones:    mf.Zones,
			InstallationDate: installed,
		})
		if err != nil {
			return fmt.Errorf("meter %s: %w", mf.Serial, err)
		}
		res.Meters++

		for _, rf := range mf.Readings {
			date, _ := time.Parse(dateLayout, rf.Date)
			rd := models.MeterReading{
				OrganizationID: orgID,
				MeterID:        m.ID,
				ReadingDate:    date,
				Value:          rf.Value,
			}
			if rf.Zone != "" {
				zone := rf.Zone
				rd.Zone = &zone
			}
			if _, err := readings.Create(ctx, rd); err != nil {
				return fmt.Errorf("reading for %s on %s: %w", mf.Serial, rf.Date, err)
			}
			res.Readings++
		}
	}
	return nil
}
