package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 7 * 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	secretSettingKey = "jwt_secret"
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrRateLimited    = errors.New("too many login attempts, try again later")
)

// Auth issues and checks account tokens
type Auth struct {
	db        *DB
	jwtSecret []byte
	cost      int

	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler
func NewAuth(db *DB) (*Auth, error) {
	secret, err := loadOrCreateSecret(db)
	if err != nil {
		return nil, err
	}
	return &Auth{
		db:        db,
		jwtSecret: secret,
		cost:      bcryptCost,
		rateMap:   make(map[string]*rateEntry),
	}, nil
}

// loadOrCreateSecret keeps tokens valid across restarts by persisting the key
func loadOrCreateSecret(db *DB) ([]byte, error) {
	if h := db.GetSetting(secretSettingKey); h != "" {
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b, nil
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	if err := db.SetSetting(secretSettingKey, hex.EncodeToString(secret)); err != nil {
		logger.WithField("component", "auth").WithError(err).Warn("could not persist jwt secret")
	}
	return secret, nil
}

// Register creates a new account and returns its id and a token
func (a *Auth) Register(username, password string) (int64, string, error) {
	username = strings.TrimSpace(username)

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return 0, "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return 0, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		return 0, "", fmt.Errorf("lookup username: %w", err)
	}
	if exists {
		return 0, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return 0, "", fmt.Errorf("hash password: %w", err)
	}

	id, err := a.db.CreateAccount(username, string(hash))
	if err != nil {
		return 0, "", fmt.Errorf("create account: %w", err)
	}

	token, err := a.generateToken(id, username)
	if err != nil {
		return 0, "", err
	}
	return id, token, nil
}

// Login authenticates a user and returns a JWT
func (a *Auth) Login(username, password, ip string) (int64, string, error) {
	if !a.checkRate(ip) {
		return 0, "", ErrRateLimited
	}

	acc, err := a.db.GetAccountByUsername(strings.TrimSpace(username))
	if err != nil {
		return 0, "", fmt.Errorf("lookup account: %w", err)
	}
	if acc == nil {
		return 0, "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PassHash), []byte(password)); err != nil {
		return 0, "", ErrBadCredentials
	}

	token, err := a.generateToken(acc.ID, acc.Username)
	if err != nil {
		return 0, "", err
	}
	return acc.ID, token, nil
}

// ValidateToken validates a JWT and returns (accountID, username, error)
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	aid, ok := claims["aid"].(float64)
	if !ok {
		return 0, "", errors.New("invalid token claims")
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return 0, "", errors.New("invalid token claims")
	}
	return int64(aid), username, nil
}

func (a *Auth) generateToken(accountID int64, username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"aid": accountID,
		"usr": username,
		"exp": now.Add(jwtExpiry).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

// GenerateGuestName creates a display name like "Guest_a3f2c1"
func GenerateGuestName() string {
	b := make([]byte, 3)
	rand.Read(b)
	return "Guest_" + hex.EncodeToString(b)
}
