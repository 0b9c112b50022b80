package main

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"
)

// Client -> Server message types
const (
	MsgMove        = "move"
	MsgBreak       = "break"
	MsgPlace       = "place"
	MsgBuy         = "buy"
	MsgClaim       = "claim"
	MsgAttack      = "attack"
	MsgPearl       = "pearl"
	MsgFireball    = "fireball"
	MsgJoin        = "join"
	MsgLeave       = "leave"
	MsgRegister    = "register"
	MsgLogin       = "login"
	MsgAuth        = "auth"
	MsgProfile     = "profile"
	MsgLeaderboard = "leaderboard"
)

// Server -> Client message types
const (
	MsgWelcome         = "welcome"
	MsgPlayerJoin      = "player_join"
	MsgPlayerLeave     = "player_leave"
	MsgSeat            = "seat"
	MsgBlockAdd        = "block_add"
	MsgBlockRemove     = "block_remove"
	MsgPickupAdd       = "pickup_add"
	MsgPickupRemove    = "pickup_remove"
	MsgInventory       = "inventory"
	MsgHit             = "hit"
	MsgKnockback       = "knockback"
	MsgRespawn         = "respawn"
	MsgEliminated      = "eliminated"
	MsgBedDestroyed    = "bed_destroyed"
	MsgCountdown       = "countdown"
	MsgCountdownCancel = "countdown_cancel"
	MsgMatchStart      = "match_start"
	MsgTimer           = "timer"
	MsgSuddenDeath     = "sudden_death"
	MsgMatchEnd        = "match_end"
	MsgMatchReset      = "match_reset"
	MsgProjSpawn       = "projectile_spawn"
	MsgProjRemove      = "projectile_remove"
	MsgExplosion       = "explosion"
	MsgTeleport        = "teleport"
	MsgRevertBlock     = "revert_block"
	MsgRevertPickup    = "revert_pickup"
	MsgRevertInventory = "revert_inventory"
	MsgRevertPosition  = "revert_position"
	MsgRevertHit       = "revert_hit"
	MsgAuthOK          = "auth_ok"
	MsgProfileData     = "profile_data"
	MsgLeaderboardData = "leaderboard_data"
	MsgAchievement     = "achievement"
	MsgError           = "error"
	MsgState           = "state" // binary frame, never sent as JSON
)

// Binary frame kinds, first byte of every binary message
const (
	FrameState byte = 0x01 // msgpack GameState
	FrameWorld byte = 0x02 // zstd(msgpack WorldFrame)
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the type is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// MoveMsg is sent by the client at ~20Hz
type MoveMsg struct {
	Pos      mgl64.Vec3 `json:"pos"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
	Crouch   bool       `json:"crouch"`
	Selected *int       `json:"slot,omitempty"` // nil keeps the current slot
}

// BlockMsg carries a block target, with an item for placement
type BlockMsg struct {
	Pos  BlockPos `json:"pos"`
	Item Item     `json:"item,omitempty"`
}

// BuyMsg requests a shop purchase
type BuyMsg struct {
	Item Item `json:"item"`
}

// ClaimMsg requests a pickup
type ClaimMsg struct {
	ID string `json:"id"`
}

// AttackMsg requests a melee hit
type AttackMsg struct {
	Target string `json:"target"`
}

// ThrowMsg aims a pearl or fireball at a world point
type ThrowMsg struct {
	Aim mgl64.Vec3 `json:"aim"`
}

// RegisterMsg / LoginMsg carry account credentials
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes an account with a stored token
type AuthMsg struct {
	Token string `json:"token"`
}

// LeaderboardMsg picks the ranking column
type LeaderboardMsg struct {
	By string `json:"by"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	ID        string     `json:"id" msgpack:"id"`
	Name      string     `json:"n,omitempty" msgpack:"n,omitempty"`
	Pos       mgl64.Vec3 `json:"p" msgpack:"p"`
	Yaw       float64    `json:"y" msgpack:"y"`
	Pitch     float64    `json:"pi" msgpack:"pi"`
	Crouch    bool       `json:"c,omitempty" msgpack:"c,omitempty"`
	HP        int        `json:"hp" msgpack:"hp"`
	MaxHP     int        `json:"mhp" msgpack:"mhp"`
	Held      Item       `json:"h" msgpack:"h"`
	HasBed    bool       `json:"b" msgpack:"b"`
	Spectator bool       `json:"s" msgpack:"s"`
}

// ProjectileState is broadcast per live projectile
type ProjectileState struct {
	ID    string         `json:"id" msgpack:"id"`
	Kind  ProjectileKind `json:"k" msgpack:"k"`
	Owner string         `json:"o" msgpack:"o"`
	Pos   mgl64.Vec3     `json:"p" msgpack:"p"`
	Vel   mgl64.Vec3     `json:"v" msgpack:"v"`
}

// GameState is the per-tick snapshot
type GameState struct {
	Tick        uint64            `json:"tick" msgpack:"tick"`
	Phase       MatchPhase        `json:"ph" msgpack:"ph"`
	Players     []PlayerState     `json:"p" msgpack:"p"`
	Projectiles []ProjectileState `json:"pr" msgpack:"pr"`
}

// WorldFrame is the full world sync sent on join and reset
type WorldFrame struct {
	Blocks  []Block       `msgpack:"b"`
	Pickups []PickupState `msgpack:"pk"`
	Beds    []BedState    `msgpack:"beds"`
}

// PickupState describes a live pickup
type PickupState struct {
	ID       string     `json:"id" msgpack:"id"`
	Pos      mgl64.Vec3 `json:"p" msgpack:"p"`
	Resource Resource   `json:"r" msgpack:"r"`
}

// BedState links a bed block to its owner
type BedState struct {
	Owner string   `json:"o" msgpack:"o"`
	Pos   BlockPos `json:"p" msgpack:"p"`
}

// WelcomeMsg is sent to a connection after it registers
type WelcomeMsg struct {
	ID      string         `json:"id"`
	Phase   MatchPhase     `json:"phase"`
	Reach   float64        `json:"reach"`
	Catalog []CatalogEntry `json:"catalog"`
}

// SeatMsg tells everyone which island a player holds (-1 = none)
type SeatMsg struct {
	ID        string `json:"id"`
	Island    int    `json:"island"`
	Spectator bool   `json:"spectator"`
}

// BlockEvent reports a block add or removal
type BlockEvent struct {
	Pos  BlockPos `json:"pos"`
	Item Item     `json:"item"`
	By   string   `json:"by,omitempty"`
}

// InventoryMsg is the private economy view of one player
type InventoryMsg struct {
	Slots    Inventory `json:"slots"`
	Currency Currency  `json:"currency"`
	Selected int       `json:"slot"`
}

// HitMsg reports a health change
type HitMsg struct {
	Target   string `json:"target"`
	Attacker string `json:"attacker,omitempty"`
	Damage   int    `json:"dmg"`
	HP       int    `json:"hp"`
	Cause    string `json:"cause"`
}

// KnockbackMsg is an impulse the target client applies to itself
type KnockbackMsg struct {
	Target  string     `json:"target"`
	Impulse mgl64.Vec3 `json:"v"`
}

// RespawnMsg reports a respawn at a bed
type RespawnMsg struct {
	ID  string     `json:"id"`
	Pos mgl64.Vec3 `json:"pos"`
	HP  int        `json:"hp"`
}

// EliminatedMsg reports a final death
type EliminatedMsg struct {
	ID     string `json:"id"`
	By     string `json:"by,omitempty"`
	Cause  string `json:"cause"`
	Remain int    `json:"remaining"`
}

// BedDestroyedMsg reports a lost bed
type BedDestroyedMsg struct {
	Owner string   `json:"owner"`
	By    string   `json:"by,omitempty"`
	Pos   BlockPos `json:"pos"`
}

// CountdownMsg reports whole seconds until start
type CountdownMsg struct {
	Seconds int `json:"s"`
}

// MatchStartMsg lists the seated roster and their beds
type MatchStartMsg struct {
	Duration float64    `json:"duration"`
	Players  []SeatMsg  `json:"players"`
	Beds     []BedState `json:"beds"`
}

// TimerMsg reports whole seconds remaining in the round
type TimerMsg struct {
	Remaining int  `json:"s"`
	Sudden    bool `json:"sd,omitempty"`
}

// MatchEndMsg names the winner ("" when nobody survived)
type MatchEndMsg struct {
	Winner string  `json:"winner,omitempty"`
	Reason string  `json:"reason"`
	Length float64 `json:"length"`
}

// ProjectileMsg announces a new projectile
type ProjectileMsg struct {
	ProjectileState
}

// ProjectileRemoveMsg announces a resolved projectile
type ProjectileRemoveMsg struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ExplosionMsg lists exactly the cells a fireball destroyed
type ExplosionMsg struct {
	Owner   string     `json:"owner"`
	Center  mgl64.Vec3 `json:"center"`
	Removed []BlockPos `json:"removed"`
}

// TeleportMsg moves a pearl thrower
type TeleportMsg struct {
	ID  string     `json:"id"`
	Pos mgl64.Vec3 `json:"pos"`
}

// RevertBlockMsg restores the authoritative cell content on one client
type RevertBlockMsg struct {
	Pos    BlockPos `json:"pos"`
	Item   Item     `json:"item"`
	Reason string   `json:"reason"`
}

// RevertPickupMsg restores a pickup the client predicted as claimed
type RevertPickupMsg struct {
	PickupState
	Reason string `json:"reason"`
}

// RevertInventoryMsg restores the economy after a rejected buy/throw
type RevertInventoryMsg struct {
	InventoryMsg
	Reason string `json:"reason"`
}

// RevertPositionMsg snaps a client back to its authoritative position
type RevertPositionMsg struct {
	Pos    mgl64.Vec3 `json:"pos"`
	Reason string     `json:"reason"`
}

// RevertHitMsg restores the target health an attacker predicted
type RevertHitMsg struct {
	Target string `json:"target"`
	HP     int    `json:"hp"`
	Reason string `json:"reason"`
}

// AuthOKMsg confirms an authenticated account
type AuthOKMsg struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	AccountID int64  `json:"aid"`
}

// ProfileDataMsg carries lifetime stats for the account
type ProfileDataMsg struct {
	Username   string  `json:"username"`
	Level      int     `json:"level"`
	XP         int     `json:"xp"`
	Kills      int     `json:"kills"`
	FinalKills int     `json:"final_kills"`
	BedsBroken int     `json:"beds_broken"`
	Deaths     int     `json:"deaths"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Playtime   float64 `json:"playtime"`

	Achievements []string      `json:"achievements"`
	Recent       []RecentMatch `json:"recent"`
}

// RecentMatch is one row of an account's match history
type RecentMatch struct {
	MatchID    int64 `json:"match"`
	Kills      int   `json:"kills"`
	FinalKills int   `json:"final_kills"`
	BedsBroken int   `json:"beds_broken"`
	Deaths     int   `json:"deaths"`
	Won        bool  `json:"won"`
	XP         int   `json:"xp"`
}

// AchievementMsg announces a newly unlocked achievement
type AchievementMsg struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
