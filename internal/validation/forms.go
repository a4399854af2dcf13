package validation

import (
	"strings"

	"github.com/aristath/folio/internal/domain"
)

// ClientForm is the raw input of the client form
type ClientForm struct {
	Name   string `json:"name" validate:"min=2"`
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"oneof=active inactive"`
}

// AssetForm is the raw input of the asset form.
// CurrentValue is kept as text and coerced to a number here.
type AssetForm struct {
	Name         string `json:"name" validate:"min=2"`
	CurrentValue string `json:"currentValue"`
}

// AllocationForm is the raw input of the new-allocation form
type AllocationForm struct {
	ClientID string `json:"clientId"`
	AssetID  string `json:"assetId"`
	Amount   string `json:"amount"`
}

// References is the set of identifiers an allocation may point at
type References struct {
	Clients map[string]domain.Client
	Assets  map[string]domain.Asset
}

// NewReferences indexes the known clients and assets by id
func NewReferences(clients []domain.Client, assets []domain.Asset) References {
	refs := References{
		Clients: make(map[string]domain.Client, len(clients)),
		Assets:  make(map[string]domain.Asset, len(assets)),
	}
	for _, c := range clients {
		refs.Clients[c.ID] = c
	}
	for _, a := range assets {
		refs.Assets[a.ID] = a
	}
	return refs
}

// ValidateClient checks a client form.
// An empty status defaults to active, the form's initial selection.
func ValidateClient(form ClientForm) (domain.ClientInput, FieldErrors) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Status = strings.ToLower(strings.TrimSpace(form.Status))
	if form.Status == "" {
		form.Status = string(domain.ClientStatusActive)
	}

	errs := FieldErrors{}
	checkStruct(form, errs)
	if !errs.Empty() {
		return domain.ClientInput{}, errs
	}

	return domain.ClientInput{
		Name:   form.Name,
		Email:  form.Email,
		Status: domain.ClientStatus(form.Status),
	}, nil
}

// ValidateStatus checks a bare status update
func ValidateStatus(raw string) (domain.ClientStatus, FieldErrors) {
	status, err := domain.ParseClientStatus(raw)
	if err != nil {
		return "", FieldErrors{"status": "must be one of: active, inactive"}
	}
	return status, nil
}

// ValidateAsset checks an asset form and coerces its value
func ValidateAsset(form AssetForm) (domain.AssetInput, FieldErrors) {
	form.Name = strings.TrimSpace(form.Name)

	errs := FieldErrors{}
	checkStruct(form, errs)
	value := parsePositive("currentValue", form.CurrentValue, errs)
	if !errs.Empty() {
		return domain.AssetInput{}, errs
	}

	return domain.AssetInput{Name: form.Name, CurrentValue: value}, nil
}

// ValidateAllocation checks a new-allocation form against the known references.
// Only active clients may receive a new allocation.
func ValidateAllocation(form AllocationForm, refs References) (domain.AllocationInput, FieldErrors) {
	errs := FieldErrors{}

	clientID := strings.TrimSpace(form.ClientID)
	switch client, found := refs.Clients[clientID]; {
	case clientID == "":
		errs.Add("clientId", MsgRequired)
	case !found:
		errs.Add("clientId", "unknown client")
	case !client.IsActive():
		errs.Add("clientId", "client is inactive")
	}

	assetID := strings.TrimSpace(form.AssetID)
	if assetID == "" {
		errs.Add("assetId", MsgRequired)
	} else if _, found := refs.Assets[assetID]; !found {
		errs.Add("assetId", "unknown asset")
	}

	amount := parsePositive("amount", form.Amount, errs)
	if !errs.Empty() {
		return domain.AllocationInput{}, errs
	}

	return domain.AllocationInput{ClientID: clientID, AssetID: assetID, Amount: amount}, nil
}
