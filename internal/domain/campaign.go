package domain

import "time"

// Campaign statuses.
const (
	CampaignPending  = "pending"
	CampaignApproved = "approved"
	CampaignRejected = "rejected"
	CampaignActive   = "active"
	CampaignExpired  = "expired"
)

// Campaign is a promotional banner submitted by a partner.
type Campaign struct {
	ID              string     `json:"id"`
	PartnerID       string     `json:"partner_id"`
	PartnerName     string     `json:"partner_name,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	ImageURL        string     `json:"image_url"`
	LinkURL         *string    `json:"link_url,omitempty"`
	StartDate       Date       `json:"start_date"`
	EndDate         Date       `json:"end_date"`
	Status          string     `json:"status"`
	Impressions     int        `json:"impressions"`
	Clicks          int        `json:"clicks"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsLive reports whether the campaign is shown to buyers.
func (c *Campaign) IsLive() bool {
	return c.Status == CampaignActive || c.Status == CampaignApproved
}

// CampaignInput is submitted by a partner. It always enters as pending.
type CampaignInput struct {
	Title       string `json:"title" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=500"`
	ImageURL    string `json:"image_url" validate:"required,url"`
	LinkURL     string `json:"link_url" validate:"omitempty,url,max=500"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
}

// AdminCampaignInput lets an admin create a campaign for a partner.
type AdminCampaignInput struct {
	CampaignInput `validate:"-"`
	PartnerID string `json:"partner_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=pending approved active"`
}

// CampaignFilter narrows campaign listings.
type CampaignFilter struct {
	PartnerID string
	Status    string
}

// CampaignList is a campaign listing with per-status counts.
type CampaignList struct {
	Campaigns []Campaign `json:"campaigns"`
	Pending   int        `json:"pending"`
	Active    int        `json:"active"`
	Rejected  int        `json:"rejected"`
}

// NewCampaignList counts statuses over campaigns.
func NewCampaignList(campaigns []Campaign) CampaignList {
	list := CampaignList{Campaigns: campaigns}
	if list.Campaigns == nil {
		list.Campaigns = []Campaign{}
	}
	for i := range campaigns {
		switch {
		case campaigns[i].Status == CampaignPending:
			list.Pending++
		case campaigns[i].IsLive():
			list.Active++
		case campaigns[i].Status == CampaignRejected:
			list.Rejected++
		}
	}
	return list
}
