package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Registry struct {
	log  *zap.Logger
	repo domain.Repository
	geo  domain.GeoLookup
}

type RegistryParam struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
	Geo  domain.GeoLookup
}

func NewRegistry(p RegistryParam) domain.Registry {
	return &Registry{
		log:  p.Log.Named("jurisdiction.service"),
		repo: p.Repo,
		geo:  p.Geo,
	}
}

// ResolveForAddress returns active jurisdictions matching the address, ordered
// by priority then id. Federal always applies; state matches on state code;
// county/city/municipality come from the geo lookup; special districts and zip
// jurisdictions key on the zip code. A level with no match is skipped.
func (s *Registry) ResolveForAddress(ctx context.Context, orgID snowflake.ID, addr domain.Address) ([]domain.Jurisdiction, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	all, err := s.repo.ListActive(ctx, orgID)
	if err != nil {
		return nil, err
	}

	geoIDs, err := s.geo.Resolve(ctx, orgID, addr)
	if err != nil {
		// Geocoding is best-effort; losing county/city resolution only
		// narrows the jurisdiction set.
		s.log.Warn("geo lookup failed", zap.String("org_id", orgID.String()), zap.Error(err))
		geoIDs = nil
	}
	geoSet := make(map[snowflake.ID]struct{}, len(geoIDs))
	for _, id := range geoIDs {
		geoSet[id] = struct{}{}
	}

	state := strings.ToUpper(strings.TrimSpace(addr.State))
	zip := strings.TrimSpace(addr.Zip)

	matched := make([]domain.Jurisdiction, 0, len(all))
	for _, j := range all {
		switch j.Type {
		case domain.TypeFederal:
			matched = append(matched, j)
		case domain.TypeState:
			if state != "" && strings.EqualFold(j.StateCode, state) {
				matched = append(matched, j)
			}
		case domain.TypeCounty, domain.TypeCity, domain.TypeMunicipality:
			if _, ok := geoSet[j.ID]; ok {
				matched = append(matched, j)
			}
		case domain.TypeSpecialDistrict, domain.TypeZipCode:
			if zip != "" && j.ZipCode == zip {
				matched = append(matched, j)
			}
		}
	}

	sort.SliceStable(matched, func(i, k int) bool {
		if matched[i].Priority != matched[k].Priority {
			return matched[i].Priority < matched[k].Priority
		}
		return matched[i].ID < matched[k].ID
	})

	return matched, nil
}

func (s *Registry) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.Jurisdiction, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	row, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	return row, nil
}

// Deactivate soft-disables a jurisdiction. Rates referencing it keep their
// history; new calculations no longer resolve it.
func (s *Registry) Deactivate(ctx context.Context, orgID, id snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	return s.repo.SetActive(ctx, orgID, id, false)
}

// NoopGeoLookup resolves no county/city jurisdictions.
type NoopGeoLookup struct{}

func NewNoopGeoLookup() domain.GeoLookup { return NoopGeoLookup{} }

func (NoopGeoLookup) Resolve(ctx context.Context, orgID snowflake.ID, addr domain.Address) ([]snowflake.ID, error) {
	return nil, nil
}
