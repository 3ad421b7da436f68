package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/store"
)

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

// UpdateSettings applies the fields present in req on top of the stored
// settings. Blank footer lines are dropped.
func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if err := s.validate(req); err != nil {
		return domain.Settings{}, err
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	if req.ShopName != nil {
		name := strings.TrimSpace(*req.ShopName)
		if name == "" {
			return domain.Settings{}, &ValidationError{Field: "shopName", Message: "shopName is required"}
		}
		settings.ShopName = name
	}
	assignTrimmed(&settings.Address, req.Address)
	assignTrimmed(&settings.City, req.City)
	assignTrimmed(&settings.Phone, req.Phone)
	assignTrimmed(&settings.Email, req.Email)
	assignTrimmed(&settings.GSTNumber, req.GSTNumber)
	assignTrimmed(&settings.LogoURL, req.LogoURL)
	assignTrimmed(&settings.SignatureURL, req.SignatureURL)
	if req.FooterLines != nil {
		footer := make([]string, 0, len(*req.FooterLines))
		for _, line := range *req.FooterLines {
			if line = strings.TrimSpace(line); line != "" {
				footer = append(footer, line)
			}
		}
		settings.FooterLines = footer
	}

	saved, err := s.repo.SaveSettings(ctx, settings)
	if err != nil {
		if errors.Is(err, store.ErrInvalid) {
			return domain.Settings{}, &ValidationError{Field: "footerLines", Message: "footerLines must contain at most 3 item(s)", err: err}
		}
		return domain.Settings{}, err
	}
	log.Printf("[service] settings updated by=%s", actorName(ctx))
	return saved, nil
}

func (s *Service) ResetSettings(ctx context.Context) (domain.Settings, error) {
	saved, err := s.repo.SaveSettings(ctx, domain.DefaultSettings())
	if err != nil {
		return domain.Settings{}, err
	}
	log.Printf("[service] settings reset to defaults by=%s", actorName(ctx))
	return saved, nil
}

func assignTrimmed(dst *string, val *string) {
	if val != nil {
		*dst = strings.TrimSpace(*val)
	}
}
