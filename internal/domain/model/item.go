package model

// ItemAvailability is one entry of a point-in-time availability snapshot
// returned for an account: a favorite item, the store offering it, and how
// many units are currently claimable. Immutable; consumed once per poll
// cycle.
type ItemAvailability struct {
	ItemID         string
	StoreID        string
	StoreName      string
	DisplayName    string
	ItemsAvailable int
	// SoldOutAt is the marketplace's own sellout timestamp, verbatim as the
	// API reports it. Empty when the item has not (recently) sold out.
	SoldOutAt string
}

// Order is the marketplace's record of a successful claim.
type Order struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	ItemID string `json:"item_id"`
}
