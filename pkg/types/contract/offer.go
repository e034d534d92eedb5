package contract

import "time"

// AnalyzedOffer is the persisted outcome of one analysis pipeline run: the
// extracted record, the market context it was scored against, and the derived
// valuation and assessment.  Offers are written once and never updated;
// re-analyzing a contract produces a new offer.
type AnalyzedOffer struct {
	ID  string `json:"id"`
	VIN string `json:"vin"`

	Fields     *ContractFields     `json:"fields"`
	Market     *MarketContext      `json:"market"`
	Valuation  *ValuationResult    `json:"valuation"`
	Assessment *FairnessAssessment `json:"assessment"`

	// DocumentKey is the object-store key of the archived raw contract text;
	// empty when archiving was skipped.
	DocumentKey string `json:"document_key"`

	CreatedAt time.Time `json:"created_at"`
}
