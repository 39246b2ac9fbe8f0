package merchant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cutin/internal/domain"
	"cutin/internal/images"
	menurepo "cutin/internal/repository/menu"
	merchantrepo "cutin/internal/repository/merchant"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	listLimit   = 50
	searchPool  = 100
	searchLimit = 20
)

var (
	errNameRequired  = fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	errNegativePrice = fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
)

// ImageKind selects where an uploaded picture is stored.
type ImageKind string

const (
	ImageMenu   ImageKind = "menu"
	ImageBanner ImageKind = "banner"
)

type imageStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Service manages merchant profiles and menus.
type Service struct {
	merchants merchantrepo.Repository
	menus     menurepo.Repository
	images    imageStore
	logger    *zap.Logger
}

func New(merchants merchantrepo.Repository, menus menurepo.Repository, images imageStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{merchants: merchants, menus: menus, images: images, logger: logger}
}

// ProfileInput is a partial profile update; empty fields keep the stored value.
type ProfileInput struct {
	ShopName  string `json:"shopName"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	BannerURL string `json:"bannerUrl"`
}

// SaveProfile merges in into the merchant's profile, creating it when missing.
func (s *Service) SaveProfile(ctx context.Context, merchantID string, in ProfileInput) (*domain.Merchant, error) {
	current, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		current = &domain.Merchant{ID: merchantID}
	}
	next := *current
	mergeString(&next.ShopName, in.ShopName)
	mergeString(&next.Address, in.Address)
	mergeString(&next.Phone, in.Phone)
	mergeString(&next.BannerURL, in.BannerURL)
	return s.merchants.Upsert(ctx, next)
}

func (s *Service) GetProfile(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	return s.merchants.Get(ctx, merchantID)
}

// List returns merchants ordered by shop name.
func (s *Service) List(ctx context.Context) ([]domain.Merchant, error) {
	out, err := s.merchants.List(ctx, listLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Merchant{}
	}
	return out, nil
}

// Search matches term case-insensitively anywhere in the shop name. A blank
// term matches nothing.
func (s *Service) Search(ctx context.Context, term string) ([]domain.Merchant, error) {
	t := strings.ToLower(strings.TrimSpace(term))
	result := []domain.Merchant{}
	if t == "" {
		return result, nil
	}
	all, err := s.merchants.List(ctx, searchPool)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.ShopName), t) {
			result = append(result, m)
			if len(result) == searchLimit {
				break
			}
		}
	}
	return result, nil
}

// MenuItemInput describes a new menu item.
type MenuItemInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Available   *bool           `json:"available,omitempty"`
}

// MenuItemPatch is a partial menu item update.
type MenuItemPatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	ImageURL    *string          `json:"imageUrl,omitempty"`
	Available   *bool            `json:"available,omitempty"`
}

// AddMenuItem creates an item. Items are available unless stated otherwise.
func (s *Service) AddMenuItem(ctx context.Context, merchantID string, in MenuItemInput) (*domain.MenuItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errNameRequired
	}
	if in.Price.IsNegative() {
		return nil, errNegativePrice
	}
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	item, err := s.menus.Create(ctx, domain.MenuItem{
		MerchantID:  merchantID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Available:   available,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("menu item added", zap.String("merchant_id", merchantID), zap.String("item_id", item.ID))
	return item, nil
}

func (s *Service) Menu(ctx context.Context, merchantID string) ([]domain.MenuItem, error) {
	return s.menus.ListByMerchant(ctx, merchantID)
}

// PublicMenu returns the menu of an existing merchant.
func (s *Service) PublicMenu(ctx context.Context, merchantID string) ([]domain.MenuItem, error) {
	if _, err := s.merchants.Get(ctx, merchantID); err != nil {
		return nil, err
	}
	return s.menus.ListByMerchant(ctx, merchantID)
}

func (s *Service) UpdateMenuItem(ctx context.Context, merchantID, itemID string, patch MenuItemPatch) (*domain.MenuItem, error) {
	item, err := s.menus.Get(ctx, merchantID, itemID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, errNameRequired
		}
		item.Name = name
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, errNegativePrice
		}
		item.Price = *patch.Price
	}
	if patch.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*patch.ImageURL)
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}
	return s.menus.Update(ctx, *item)
}

func (s *Service) SetAvailability(ctx context.Context, merchantID, itemID string, available bool) (*domain.MenuItem, error) {
	return s.UpdateMenuItem(ctx, merchantID, itemID, MenuItemPatch{Available: &available})
}

func (s *Service) DeleteMenuItem(ctx context.Context, merchantID, itemID string) error {
	return s.menus.Delete(ctx, merchantID, itemID)
}

// UploadImage stores a picture and returns its public URL. Banner uploads are
// also saved on the merchant profile.
func (s *Service) UploadImage(ctx context.Context, merchantID string, kind ImageKind, data []byte) (string, error) {
	if s.images == nil {
		return "", errors.New("image storage unavailable")
	}
	var name string
	switch kind {
	case ImageMenu:
		name = images.MenuObject(merchantID)
	case ImageBanner:
		name = images.BannerObject(merchantID)
	default:
		return "", fmt.Errorf("%w: kind must be menu or banner", domain.ErrInvalidInput)
	}
	url, err := s.images.Put(ctx, name, data)
	if err != nil {
		return "", err
	}
	if kind == ImageBanner {
		if _, err := s.SaveProfile(ctx, merchantID, ProfileInput{BannerURL: url}); err != nil {
			return "", err
		}
	}
	return url, nil
}

func mergeString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
