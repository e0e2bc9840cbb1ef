package domain

// Config is the global runtime configuration singleton. Mutable only by
// administrators; each change is versioned implicitly through the audit log.
type Config struct {
	RequireEmailValidation bool
	RequirePhoneValidation bool
	MemberPrice            int64
	NonMemberPrice         int64
	Currency               string
}

// ConfigPatch is a partial update; nil fields keep the current value.
type ConfigPatch struct {
	RequireEmailValidation *bool
	RequirePhoneValidation *bool
	MemberPrice            *int64
	NonMemberPrice         *int64
	Currency               *string
}

func (c Config) Apply(p ConfigPatch) Config {
	if p.RequireEmailValidation != nil {
		c.RequireEmailValidation = *p.RequireEmailValidation
	}
	if p.RequirePhoneValidation != nil {
		c.RequirePhoneValidation = *p.RequirePhoneValidation
	}
	if p.MemberPrice != nil {
		c.MemberPrice = *p.MemberPrice
	}
	if p.NonMemberPrice != nil {
		c.NonMemberPrice = *p.NonMemberPrice
	}
	if p.Currency != nil {
		c.Currency = *p.Currency
	}
	return c
}

// PriceFor returns the tier price snapshotted onto new reservations.
func (c Config) PriceFor(t Tier) int64 {
	if t == TierMember {
		return c.MemberPrice
	}
	return c.NonMemberPrice
}
