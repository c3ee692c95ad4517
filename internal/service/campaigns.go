package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CampaignService lists and creates promotional campaigns. Moderation
// decisions live in ApprovalService.
type CampaignService struct {
	campaigns port.CampaignStore
	profiles  port.ProfileStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewCampaignService creates the campaign service.
func NewCampaignService(campaigns port.CampaignStore, profiles port.ProfileStore, logger *zap.Logger) *CampaignService {
	return &CampaignService{campaigns: campaigns, profiles: profiles, logger: logger, now: time.Now}
}

// ListAll returns every campaign with its partner name and status counts.
func (s *CampaignService) ListAll(ctx context.Context, session *domain.Session, status string) (*domain.CampaignList, error) {
	ctx, span := tracer.Start(ctx, "CampaignService.ListAll")
	defer span.End()

	if err := requireRole(session, domain.RoleAdmin, "list campaigns"); err != nil {
		return nil, err
	}

	campaigns, err := s.campaigns.ListCampaigns(ctx, domain.CampaignFilter{Status: status})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(campaigns))
	for i := range campaigns {
		ids = append(ids, campaigns[i].PartnerID)
	}
	byID, err := profilesByID(ctx, s.profiles, ids)
	if err != nil {
		return nil, err
	}
	for i := range campaigns {
		if p, ok := byID[campaigns[i].PartnerID]; ok {
			campaigns[i].PartnerName = partnerDisplayName(p)
		}
	}

	list := domain.NewCampaignList(campaigns)
	return &list, nil
}

// ListOwn returns the caller's campaigns.
func (s *CampaignService) ListOwn(ctx context.Context, session *domain.Session) (*domain.CampaignList, error) {
	ctx, span := tracer.Start(ctx, "CampaignService.ListOwn")
	defer span.End()

	if err := requireRole(session, domain.RolePartner, "list own campaigns"); err != nil {
		return nil, err
	}

	campaigns, err := s.campaigns.ListCampaigns(ctx, domain.CampaignFilter{PartnerID: session.UserID})
	if err != nil {
		return nil, err
	}
	list := domain.NewCampaignList(campaigns)
	return &list, nil
}

// Submit creates a campaign for the calling partner. It always starts pending.
func (s *CampaignService) Submit(ctx context.Context, session *domain.Session, in *domain.CampaignInput) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "CampaignService.Submit")
	defer span.End()

	if err := requireRole(session, domain.RolePartner, "submit campaigns"); err != nil {
		return nil, err
	}
	if err := validateCampaignInput(in); err != nil {
		return nil, err
	}

	fields := campaignFields(in, session.UserID, domain.CampaignPending)
	c, err := s.campaigns.CreateCampaign(ctx, fields)
	if err != nil {
		return nil, err
	}

	s.logger.Info("campaign submitted", zap.String("partner_id", session.UserID), zap.String("campaign_id", c.ID))
	return c, nil
}

// CreateForPartner lets an admin create a campaign on a partner's behalf.
// Campaigns created already approved or active record the admin as approver.
func (s *CampaignService) CreateForPartner(ctx context.Context, session *domain.Session, in *domain.AdminCampaignInput) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "CampaignService.CreateForPartner")
	defer span.End()

	if err := requireRole(session, domain.RoleAdmin, "create campaigns"); err != nil {
		return nil, err
	}
	in.PartnerID = strings.TrimSpace(in.PartnerID)
	if err := mergeValidation(validateCampaignInput(&in.CampaignInput), validateStruct(in)); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("partner.id", in.PartnerID))

	if _, err := s.profiles.GetProfile(ctx, in.PartnerID); err != nil {
		return nil, err
	}

	fields := campaignFields(&in.CampaignInput, in.PartnerID, in.Status)
	if in.Status != domain.CampaignPending {
		fields["approved_by"] = session.UserID
		fields["approved_at"] = s.now().UTC()
	}

	c, err := s.campaigns.CreateCampaign(ctx, fields)
	if err != nil {
		return nil, err
	}

	s.logger.Info("campaign created by admin",
		zap.String("partner_id", in.PartnerID),
		zap.String("campaign_id", c.ID),
		zap.String("status", in.Status),
		zap.String("admin_id", session.UserID),
	)
	return c, nil
}

// DeletePending removes one of the caller's campaigns while it is still
// awaiting moderation.
func (s *CampaignService) DeletePending(ctx context.Context, session *domain.Session, id string) error {
	ctx, span := tracer.Start(ctx, "CampaignService.DeletePending")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id))

	if err := requireRole(session, domain.RolePartner, "delete campaigns"); err != nil {
		return err
	}

	c, err := s.campaigns.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if c.PartnerID != session.UserID {
		return &domain.ErrForbidden{Action: "delete another partner's campaign"}
	}
	if c.Status != domain.CampaignPending {
		return &domain.ErrInvalidTransition{Resource: "campaign", ID: id, From: c.Status, To: "deleted"}
	}

	deleted, err := s.campaigns.DeleteCampaign(ctx, id, domain.CampaignPending)
	if err != nil {
		return err
	}
	if !deleted {
		// decided between the read and the delete
		current, err := s.campaigns.GetCampaign(ctx, id)
		if err != nil {
			return err
		}
		return &domain.ErrInvalidTransition{Resource: "campaign", ID: id, From: current.Status, To: "deleted"}
	}

	s.logger.Info("campaign deleted", zap.String("partner_id", session.UserID), zap.String("campaign_id", id))
	return nil
}

func validateCampaignInput(in *domain.CampaignInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LinkURL = strings.TrimSpace(in.LinkURL)

	fields := map[string]string{}
	if in.StartDate.IsZero() {
		fields["start_date"] = "Campo obrigatório"
	}
	if in.EndDate.IsZero() {
		fields["end_date"] = "Campo obrigatório"
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate.Time) {
		fields["end_date"] = "Data final deve ser posterior à data inicial"
	}

	var dates error
	if len(fields) > 0 {
		dates = &domain.ErrValidationSet{Fields: fields}
	}
	return mergeValidation(validateStruct(in), dates)
}

func campaignFields(in *domain.CampaignInput, partnerID, status string) map[string]any {
	fields := map[string]any{
		"partner_id":  partnerID,
		"title":       in.Title,
		"description": in.Description,
		"image_url":   in.ImageURL,
		"start_date":  in.StartDate,
		"end_date":    in.EndDate,
		"status":      status,
	}
	if in.LinkURL != "" {
		fields["link_url"] = in.LinkURL
	} else {
		fields["link_url"] = nil
	}
	return fields
}
