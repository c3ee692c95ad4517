package domain

// ProvisioningStep names one write of the partner provisioning chain.
type ProvisioningStep string

const (
	StepCreateIdentity     ProvisioningStep = "create_identity"
	StepUpdateProfile      ProvisioningStep = "update_profile"
	StepGrantRole          ProvisioningStep = "grant_role"
	StepCreateSubscription ProvisioningStep = "create_subscription"
)

// CreatePartnerRequest is the admin input for onboarding a partner.
type CreatePartnerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,notblank"`
	Company  string `json:"company" validate:"required,notblank"`
	Plan     string `json:"plan" validate:"required,plan"`
}

// CreatedPartner is returned after successful provisioning.
type CreatedPartner struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Plan    PlanID `json:"plan"`
}

// WelcomeEmail is the payload of the onboarding notification.
type WelcomeEmail struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required"`
	CompanyName string `json:"companyName"`
	Plan        string `json:"plan"`
}
