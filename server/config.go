package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole server configuration. Zero fields in a loaded file keep
// their defaults because the file is decoded over DefaultConfig().
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Rules  Rules        `yaml:"rules"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	ClientDir string `yaml:"client_dir"`
	DBPath    string `yaml:"db_path"`
	PublicURL string `yaml:"public_url"` // encoded by /qr; empty = derive from request
	MaxConns  int    `yaml:"max_conns"`
	MaxPerIP  int    `yaml:"max_per_ip"`
	RateLimit int    `yaml:"rate_limit"` // inbound messages per second per connection
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// Rules holds every gameplay constant
type Rules struct {
	TickRate int `yaml:"tick_rate"`

	MinPlayers        int           `yaml:"min_players"`
	AutoJoin          bool          `yaml:"auto_join"`
	CountdownDuration time.Duration `yaml:"countdown"`
	RoundDuration     time.Duration `yaml:"round"`
	SuddenDeathAt     time.Duration `yaml:"sudden_death_at"` // elapsed since round start
	EndDelay          time.Duration `yaml:"end_delay"`

	Reach       float64 `yaml:"reach"`
	MaxMoveStep float64 `yaml:"max_move_step"`
	VoidY       float64 `yaml:"void_y"`

	MeleeRange    float64       `yaml:"melee_range"`
	MeleeCooldown time.Duration `yaml:"melee_cooldown"`
	FistDamage    int           `yaml:"fist_damage"`
	Knockback     float64       `yaml:"knockback"`
	KnockbackLift float64       `yaml:"knockback_lift"`
	AttackCredit  time.Duration `yaml:"attack_credit"`
	RegenInterval time.Duration `yaml:"regen_interval"`

	PearlCooldown      time.Duration `yaml:"pearl_cooldown"`
	PearlSpeed         float64       `yaml:"pearl_speed"`
	PearlGravity       float64       `yaml:"pearl_gravity"`
	PearlGrace         time.Duration `yaml:"pearl_grace"`
	PearlSelfDamage    int           `yaml:"pearl_self_damage"`
	FireballCooldown   time.Duration `yaml:"fireball_cooldown"`
	FireballSpeed      float64       `yaml:"fireball_speed"`
	FireballGravity    float64       `yaml:"fireball_gravity"`
	FireballDamage     int           `yaml:"fireball_damage"`
	FireballHitRadius  float64       `yaml:"fireball_hit_radius"`
	ExplosionRadius    int           `yaml:"explosion_radius"`
	ProjectileLifetime time.Duration `yaml:"projectile_lifetime"`
	ProjectileVoidY    float64       `yaml:"projectile_void_y"`

	PickupRadius float64 `yaml:"pickup_radius"`
	PickupCap    int     `yaml:"pickup_cap"` // live pickups per spawner

	World WorldGenConfig `yaml:"world"`
}

// DefaultRules returns the standard bedwars tuning
func DefaultRules() Rules {
	return Rules{
		TickRate:           20,
		MinPlayers:         2,
		AutoJoin:           true,
		CountdownDuration:  10 * time.Second,
		RoundDuration:      10 * time.Minute,
		SuddenDeathAt:      7 * time.Minute,
		EndDelay:           10 * time.Second,
		Reach:              5.5,
		MaxMoveStep:        12,
		VoidY:              -20,
		MeleeRange:         5,
		MeleeCooldown:      500 * time.Millisecond,
		FistDamage:         1,
		Knockback:          8,
		KnockbackLift:      4,
		AttackCredit:       10 * time.Second,
		RegenInterval:      3 * time.Second,
		PearlCooldown:      time.Second,
		PearlSpeed:         20,
		PearlGravity:       20,
		PearlGrace:         200 * time.Millisecond,
		PearlSelfDamage:    0,
		FireballCooldown:   100 * time.Millisecond,
		FireballSpeed:      15,
		FireballGravity:    5,
		FireballDamage:     6,
		FireballHitRadius:  1.0,
		ExplosionRadius:    1,
		ProjectileLifetime: 10 * time.Second,
		ProjectileVoidY:    -30,
		PickupRadius:       1.5,
		PickupCap:          32,
		World:              DefaultWorldGen(),
	}
}

// DefaultConfig returns a runnable configuration with no file
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			DBPath:    "bedwars.db",
			MaxConns:  maxTotalConnections,
			MaxPerIP:  maxConnectionsPerIP,
			RateLimit: maxMessagesPerSecond,
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		Rules: DefaultRules(),
	}
}

// LoadConfig decodes a YAML file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// TickInterval is the fixed simulation step
func (r Rules) TickInterval() time.Duration {
	return time.Second / time.Duration(r.TickRate)
}

// Validate rejects inconsistent rule sets
func (c Config) Validate() error {
	r := c.Rules
	var errs []error
	if r.TickRate <= 0 || r.TickRate > 1000 {
		errs = append(errs, fmt.Errorf("tick_rate %d out of range", r.TickRate))
	}
	if r.MinPlayers < 2 {
		errs = append(errs, fmt.Errorf("min_players must be at least 2, got %d", r.MinPlayers))
	}
	if r.MinPlayers > r.World.IslandCount {
		errs = append(errs, fmt.Errorf("min_players %d exceeds island_count %d", r.MinPlayers, r.World.IslandCount))
	}
	if r.RoundDuration <= 0 {
		errs = append(errs, errors.New("round must be positive"))
	}
	if r.SuddenDeathAt <= 0 || r.SuddenDeathAt >= r.RoundDuration {
		errs = append(errs, fmt.Errorf("sudden_death_at %s must fall inside the round (%s)", r.SuddenDeathAt, r.RoundDuration))
	}
	if r.CountdownDuration < 0 || r.EndDelay < 0 {
		errs = append(errs, errors.New("countdown and end_delay must not be negative"))
	}
	if r.Reach <= 0 || r.MeleeRange <= 0 {
		errs = append(errs, errors.New("reach and melee_range must be positive"))
	}
	if r.PickupCap <= 0 {
		errs = append(errs, errors.New("pickup_cap must be positive"))
	}
	for _, iv := range []time.Duration{r.World.IronInterval, r.World.GoldInterval, r.World.DiamondInterval, r.World.EmeraldInterval} {
		if iv <= 0 {
			errs = append(errs, errors.New("spawner intervals must be positive"))
			break
		}
	}
	if r.World.IslandCount < 2 || r.World.IslandRadius < 1 {
		errs = append(errs, errors.New("world needs at least 2 islands of radius >= 1"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q (want text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}
