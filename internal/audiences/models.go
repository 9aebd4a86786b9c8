package audiences

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AudienceType selects how a cohort is built
type AudienceType string

const (
	TypePixelBased   AudienceType = "pixel_based"
	TypeCustomerList AudienceType = "customer_list"
	TypeLookalike    AudienceType = "lookalike"
	TypeCustom       AudienceType = "custom"
)

// RuleConditions refine a pixel-based event scan
type RuleConditions struct {
	ProductViewed     *string  `json:"product_viewed,omitempty"`
	MinCartValue      *float64 `json:"min_cart_value,omitempty"`
	PurchaseCompleted *bool    `json:"purchase_completed,omitempty"`
}

// Rules is the declarative cohort definition. Which fields apply
// depends on the audience type; stored as JSONB.
type Rules struct {
	Events           []string        `json:"events,omitempty"`
	TimeframeDays    int             `json:"timeframe,omitempty"`
	Conditions       *RuleConditions `json:"conditions,omitempty"`
	UserIDs          []string        `json:"user_ids,omitempty"`
	SourceAudienceID *string         `json:"source_audience_id,omitempty"`
	Similarity       float64         `json:"similarity,omitempty"`
}

func (r Rules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *Rules) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, r)
	case string:
		return json.Unmarshal([]byte(data), r)
	case nil:
		*r = Rules{}
		return nil
	default:
		return fmt.Errorf("unsupported rules type %T", src)
	}
}

// Audience is a named, persisted cohort of user IDs. Size caches the
// member count and must equal count(members) after every build.
type Audience struct {
	ID        string       `json:"id" db:"id"`
	SellerID  string       `json:"seller_id" db:"seller_id"`
	Name      string       `json:"name" db:"name"`
	Type      AudienceType `json:"type" db:"type"`
	Rules     Rules        `json:"rules" db:"rules"`
	Size      int          `json:"size" db:"size"`
	IsActive  bool         `json:"is_active" db:"is_active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`

	// Fresh count(members), filled on single-audience reads so
	// consumers can spot drift against Size
	MemberCount *int `json:"member_count,omitempty" db:"-"`
}

// AudienceMember links a user into a cohort, unique per
// (audience, user)
type AudienceMember struct {
	AudienceID string          `json:"audience_id" db:"audience_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	AddedAt    time.Time       `json:"added_at" db:"added_at"`
}
