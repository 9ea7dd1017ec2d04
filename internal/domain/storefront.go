package domain

// Storefront is everything needed to render a seller's public page. It is
// cached as one unit.
type Storefront struct {
	Profile  Profile   `json:"profile"`
	Settings Settings  `json:"settings"`
	Links    []Link    `json:"links"`
	Products []Product `json:"products"`
}
