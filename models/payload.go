package models

import "strings"

// ClientPayload is the raw JSON body accepted by create and update.
// Every field is optional at this stage; unknown input keys are
// dropped by the JSON decoder.
type ClientPayload struct {
	FullName    string `json:"full_name"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Status      string `json:"status"`
	GoFactors   string `json:"go_factors"`
	NoGoFactors string `json:"no_go_factors"`
	Notes       string `json:"notes"`
}

// ClientFields is the normalized form of a payload: trimmed, with
// empty strings collapsed to nil and status defaulted.
type ClientFields struct {
	FullName    *string
	Company     *string
	Email       *string
	Phone       *string
	Status      ClientStatus
	GoFactors   *string
	NoGoFactors *string
	Notes       *string
}

// clean trims surrounding whitespace and maps empty-after-trim to nil.
func clean(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// Normalize converts the raw payload into its canonical field set.
// Status is the one special case: absent or blank becomes the default
// rather than nil.
func (p ClientPayload) Normalize() ClientFields {
	fields := ClientFields{
		FullName:    clean(p.FullName),
		Company:     clean(p.Company),
		Email:       clean(p.Email),
		Phone:       clean(p.Phone),
		Status:      DefaultStatus,
		GoFactors:   clean(p.GoFactors),
		NoGoFactors: clean(p.NoGoFactors),
		Notes:       clean(p.Notes),
	}
	if status := clean(p.Status); status != nil {
		fields.Status = ClientStatus(*status)
	}
	return fields
}

// Validate returns all rule violations as human-readable messages.
// Both rules are evaluated even when the first one fails.
func (f ClientFields) Validate() []string {
	var errs []string
	if f.FullName == nil {
		errs = append(errs, "full_name is required.")
	}
	if !f.Status.Valid() {
		errs = append(errs, "status must be one of: prospect, active, closed, churn_risk.")
	}
	return errs
}

// Apply writes the normalized fields onto a client record. ID and
// CreatedAt are left alone; everything mutable is replaced, so a field
// absent from the payload clears the stored value (and status falls
// back to the default).
func (f ClientFields) Apply(client *Client) {
	if f.FullName != nil {
		client.FullName = *f.FullName
	}
	client.Company = f.Company
	client.Email = f.Email
	client.Phone = f.Phone
	client.Status = f.Status
	client.GoFactors = f.GoFactors
	client.NoGoFactors = f.NoGoFactors
	client.Notes = f.Notes
}
