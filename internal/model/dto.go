package model

type CreateShopRequest struct {
	Pos        string     `json:"pos" binding:"required"` // world;x;y;z of the container
	BundleSize int        `json:"bundle_size" binding:"required"`
	Price      int        `json:"price" binding:"required"`
	Currency   string     `json:"currency,omitempty"`
	Template   *ItemStack `json:"template,omitempty"` // defaults to first stack in the container
	Facing     string     `json:"facing,omitempty"`
}

type BuyRequest struct {
	Bundles int  `json:"bundles"`
	Max     bool `json:"max,omitempty"` // buy as many bundles as stock and funds allow
}

type ShopInfo struct {
	Shop
	UnitPrice      string `json:"unit_price"` // exact price per single item
	UnitPriceCeil  int    `json:"unit_price_ceil"`
	StockBundles   int    `json:"stock_bundles"`
	ContainerFound bool   `json:"container_found"`
}

type AuctionLotRequest struct {
	Slot        int        `json:"slot"` // inventory slot to take one item from
	Item        *ItemStack `json:"item,omitempty"`
	StartingBid int        `json:"starting_bid" binding:"required"`
}

type CreateAuctionRequest struct {
	Lots     []AuctionLotRequest `json:"lots" binding:"required"`
	Duration string              `json:"duration,omitempty"` // e.g. 1d2h30m, bare number = seconds
}

type BidRequest struct {
	Amount int `json:"amount" binding:"required"`
}

type HireRequest struct {
	KeeperID string `json:"keeper_id,omitempty"` // defaults to the caller's latest keeper
	Text     string `json:"text,omitempty"`      // replaces the stored order first when set
}

type OrderTextRequest struct {
	Text string `json:"text" binding:"required"`
}

type PromptInput struct {
	Input string `json:"input"`
}
