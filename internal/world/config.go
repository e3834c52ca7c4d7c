package world

import "time"

const (
	DefaultHitRadius     = 50.0
	DefaultHitDamage     = 10
	DefaultInitialHealth = 100
	DefaultProjectileTTL = 5 * time.Second
)

// Config captures the tunables of the world rules.
type Config struct {
	HitRadius     float64
	HitDamage     int
	InitialHealth int
	ProjectileTTL time.Duration
	// MaxCrew caps crew per ship. Zero means unlimited.
	MaxCrew int
}

// DefaultConfig returns the rules used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		HitRadius:     DefaultHitRadius,
		HitDamage:     DefaultHitDamage,
		InitialHealth: DefaultInitialHealth,
		ProjectileTTL: DefaultProjectileTTL,
	}
}

func (c Config) normalized() Config {
	if c.HitRadius <= 0 {
		c.HitRadius = DefaultHitRadius
	}
	if c.HitDamage <= 0 {
		c.HitDamage = DefaultHitDamage
	}
	if c.InitialHealth <= 0 {
		c.InitialHealth = DefaultInitialHealth
	}
	if c.ProjectileTTL <= 0 {
		c.ProjectileTTL = DefaultProjectileTTL
	}
	if c.MaxCrew < 0 {
		c.MaxCrew = 0
	}
	return c
}
