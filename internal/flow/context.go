package flow

import "strings"

// Context is the sparse view of what the user has told us so far. Zero
// values mean "no evidence yet" and are omitted from Fields.
type Context struct {
	Product         string `json:"product,omitempty"`
	Market          string `json:"market,omitempty"`
	Differentiation string `json:"differentiation,omitempty"`
	CompanySize     string `json:"company_size,omitempty"`
	LinkedInConsent bool   `json:"linkedin_consent,omitempty"`
	ZipCode         string `json:"zip_code,omitempty"`
}

// Fields returns only the keys backed by an answer
func (c Context) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if c.Product != "" {
		fields["product"] = c.Product
	}
	if c.Market != "" {
		fields["market"] = c.Market
	}
	if c.Differentiation != "" {
		fields["differentiation"] = c.Differentiation
	}
	if c.CompanySize != "" {
		fields["company_size"] = c.CompanySize
	}
	if c.LinkedInConsent {
		fields["linkedin_consent"] = true
	}
	if c.ZipCode != "" {
		fields["zip_code"] = c.ZipCode
	}
	return fields
}

// IsEmpty reports whether no answer has contributed to the context
func (c Context) IsEmpty() bool {
	return len(c.Fields()) == 0
}

// Text joins the descriptive values, used for deterministic keyword extraction
func (c Context) Text() string {
	parts := make([]string, 0, 4)
	for _, v := range []string{c.Product, c.Market, c.Differentiation, c.CompanySize} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}
