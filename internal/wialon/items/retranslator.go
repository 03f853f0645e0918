package items

import (
	"context"
	"fmt"
	"strings"

	"fleet-provisioning/internal/wialon"
)

const retranslatorFlags = wialon.DataFlagBase | wialon.DataFlagBillingProperties | wialon.DataFlagRetranslatorConfig

// Retranslator forwards unit messages to an external server.
type Retranslator struct {
	base
}

// CreateRetranslator creates a retranslator owned by creatorID.
func CreateRetranslator(ctx context.Context, s *wialon.Session, creatorID int64, name string, cfg wialon.RetranslatorConfig) (*Retranslator, error) {
	if err := wialon.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validateID(creatorID); err != nil {
		return nil, err
	}
	if err := validateRetranslatorConfig(cfg); err != nil {
		return nil, err
	}
	var res wialon.ItemResult
	err := s.Call(ctx, wialon.SvcCreateRetranslator, wialon.CreateRetranslatorParams{
		CreatorID: creatorID,
		Name:      name,
		Config:    cfg,
		DataFlags: retranslatorFlags,
	}, &res)
	if err != nil {
		return nil, err
	}
	r := &Retranslator{base: newBase(wialon.ItemTypeRetranslator, 0, retranslatorFlags)}
	if err := r.adopt(wialon.SvcCreateRetranslator, res); err != nil {
		return nil, err
	}
	return r, nil
}

// GetRetranslator loads an existing retranslator.
func GetRetranslator(ctx context.Context, s *wialon.Session, id int64) (*Retranslator, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	r := &Retranslator{base: newBase(wialon.ItemTypeRetranslator, id, retranslatorFlags)}
	if err := r.Refresh(ctx, s); err != nil {
		return nil, err
	}
	return r, nil
}

// Config is the forwarding configuration as of the last refresh.
func (r *Retranslator) Config() wialon.RetranslatorConfig {
	if r.item.Retranslator == nil {
		return wialon.RetranslatorConfig{}
	}
	return *r.item.Retranslator
}

func validateRetranslatorConfig(cfg wialon.RetranslatorConfig) error {
	if strings.TrimSpace(cfg.Protocol) == "" {
		return &wialon.ValidationError{Field: "config.protocol", Reason: "must not be empty"}
	}
	if strings.TrimSpace(cfg.Server) == "" {
		return &wialon.ValidationError{Field: "config.server", Reason: "must not be empty"}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &wialon.ValidationError{Field: "config.port", Reason: fmt.Sprintf("out of range: %d", cfg.Port)}
	}
	return nil
}
