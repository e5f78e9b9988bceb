package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/category/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// defaultEngineRouting maps category types to calculation engines. Types
// absent from the table route to the general engine.
var defaultEngineRouting = map[string]string{
	domain.CategoryTelecommunications: domain.EngineTelecom,
	domain.CategoryTelecomVoice:       domain.EngineTelecom,
	domain.CategoryTelecomData:        domain.EngineTelecom,
	domain.CategoryInternet:           domain.EngineGeneral,
	domain.CategoryDataServices:       domain.EngineGeneral,
	domain.CategoryEquipment:          domain.EngineGeneral,
	domain.CategoryInstallation:       domain.EngineGeneral,
	domain.CategoryHosting:            domain.EngineGeneral,
	domain.CategorySoftware:           domain.EngineGeneral,
	domain.CategoryGeneral:            domain.EngineGeneral,
}

// applicableTaxTypes lists which tax types each category type can attract.
var applicableTaxTypes = map[string][]string{
	domain.CategoryTelecommunications: {"federal", "state", "local", "municipal", "county", "special_district"},
	domain.CategoryTelecomVoice:       {"federal", "state", "local", "municipal", "county", "special_district"},
	domain.CategoryTelecomData:        {"federal", "state", "local", "special_district"},
	domain.CategoryInternet:           {"federal", "state", "local"},
	domain.CategoryDataServices:       {"federal", "state", "local"},
	domain.CategoryEquipment:          {"state", "local", "county"},
	domain.CategoryInstallation:       {"state", "local"},
	domain.CategoryHosting:            {"federal", "state"},
	domain.CategorySoftware:           {"federal", "state"},
}

var generalTaxTypes = []string{"federal", "state", "local", "county"}

type Classifier struct {
	log     *zap.Logger
	repo    domain.Repository
	routing map[string]string
}

type ClassifierParam struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

func NewClassifier(p ClassifierParam) domain.Classifier {
	routing := make(map[string]string, len(defaultEngineRouting))
	for k, v := range defaultEngineRouting {
		routing[k] = v
	}
	return &Classifier{
		log:     p.Log.Named("category.service"),
		repo:    p.Repo,
		routing: routing,
	}
}

func (s *Classifier) Classify(ctx context.Context, orgID snowflake.ID, ref domain.Ref) (domain.Classification, error) {
	if orgID == 0 {
		return domain.Classification{}, domain.ErrInvalidOrganization
	}

	if ref.CategoryID != 0 {
		cat, err := s.repo.FindByID(ctx, orgID, ref.CategoryID)
		if err != nil {
			return domain.Classification{}, err
		}
		if cat == nil {
			return domain.Classification{}, domain.ErrUnknownCategory
		}
		return domain.Classification{
			Category:     cat,
			CategoryType: cat.CategoryType,
			EngineType:   s.engineFor(cat.CategoryType),
		}, nil
	}

	categoryType := strings.ToLower(strings.TrimSpace(ref.CategoryType))
	if categoryType == "" {
		return domain.Classification{}, domain.ErrUnknownCategory
	}

	return domain.Classification{
		CategoryType: categoryType,
		EngineType:   s.engineFor(categoryType),
	}, nil
}

func (s *Classifier) GetApplicableTaxTypes(categoryType string) []string {
	key := strings.ToLower(strings.TrimSpace(categoryType))
	if types, ok := applicableTaxTypes[key]; ok {
		out := make([]string, len(types))
		copy(out, types)
		return out
	}
	out := make([]string, len(generalTaxTypes))
	copy(out, generalTaxTypes)
	return out
}

func (s *Classifier) engineFor(categoryType string) string {
	if engine, ok := s.routing[strings.ToLower(strings.TrimSpace(categoryType))]; ok {
		return engine
	}
	return domain.EngineGeneral
}
