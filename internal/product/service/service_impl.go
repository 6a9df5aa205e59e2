package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/cache"
	"github.com/smallbiznis/pricecast/internal/config"
	orgdomain "github.com/smallbiznis/pricecast/internal/organization/domain"
	"github.com/smallbiznis/pricecast/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultOrgName = "Default Organization"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Repo    domain.Repository
	OrgRepo orgdomain.Repository
	Lookup  *cache.ProductLookupCache `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	orgRepo    orgdomain.Repository
	lookup     *cache.ProductLookupCache
	autoCreate bool
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("product.service"),
		repo:       p.Repo,
		orgRepo:    p.OrgRepo,
		lookup:     p.Lookup,
		autoCreate: p.Config.ETL.AutoCreateProducts,
	}
}

func (s *Service) EnsureExists(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if s.lookup.Exists(id.String()) {
		return nil
	}

	existing, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if !s.autoCreate {
		return fmt.Errorf("%w: %s", domain.ErrAutoCreateDisabled, id)
	}

	org, err := s.orgRepo.FindFirst(ctx, tx)
	if err != nil {
		return err
	}
	if org == nil {
		org = &orgdomain.Organization{
			ID:        uuid.New(),
			Name:      defaultOrgName,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.orgRepo.Create(ctx, tx, org); err != nil {
			return fmt.Errorf("create default organization: %w", err)
		}
		s.log.Info("created default organization", zap.String("org_id", org.ID.String()))
	}

	short := shortHex(id)
	p := &domain.Product{
		ID:        id,
		OrgID:     org.ID,
		SKU:       fmt.Sprintf("AUTO-%s", short),
		Name:      fmt.Sprintf("Auto-created Product %s", short),
		Currency:  "USD",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tx, p); err != nil {
		return fmt.Errorf("create product %s: %w", id, err)
	}

	s.log.Warn("created missing product",
		zap.String("product_id", id.String()),
		zap.String("org_id", org.ID.String()),
	)
	return nil
}

// MarkKnown caches product IDs whose transaction has committed. Marking
// inside EnsureExists would poison the cache on rollback.
func (s *Service) MarkKnown(ids []uuid.UUID) {
	for _, id := range ids {
		s.lookup.MarkExists(id.String())
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	productID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func toResponse(p *domain.Product) domain.Response {
	return domain.Response{
		ID:             p.ID.String(),
		OrganizationID: p.OrgID.String(),
		SKU:            p.SKU,
		Name:           p.Name,
		Currency:       p.Currency,
		CreatedAt:      p.CreatedAt,
	}
}

func shortHex(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}
